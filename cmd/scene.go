/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sceneCmd groups the scene file commands
var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Manage stored scenes",
	Long: `Manage the named frames kept in the scene file.

The scene file is YAML and defaults to scenes.yaml; set it with
--scene-file or scene_file in the config. The daemon loads the same file,
so a saved scene can be recalled with POST /universe/{id}/scene/{name}.`,
}

var sceneSaveCmd = &cobra.Command{
	Use:   "save <name> [frame]",
	Short: "Store a frame under a name",
	Long: `Store a frame under a name, replacing any scene with that name.

Example usage:
  dmx scene save warm "255,180,80" --universe 1
  echo "0,0,0,255" | dmx scene save blue`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, path, err := openScenes()
		if err != nil {
			return err
		}
		frame, err := frameArg(args[1:])
		if err != nil {
			return err
		}
		defer frame.Release()

		universe, _ := cmd.Flags().GetInt("universe")
		if err := store.Put(args[0], universe, frame); err != nil {
			return err
		}
		if err := store.Save(path); err != nil {
			return err
		}
		fmt.Printf("Saved scene %q (%d channels) to %s\n", args[0], frame.Size(), path)
		return nil
	},
}

var sceneShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openScenes()
		if err != nil {
			return err
		}
		sc, err := store.Get(args[0])
		if err != nil {
			return err
		}
		defer sc.Frame.Release()

		fmt.Printf("Scene:    %s\n", sc.Name)
		fmt.Printf("Universe: %d\n", sc.Universe)
		fmt.Printf("Channels: %d\n", sc.Frame.Size())
		fmt.Printf("Frame:    %s\n", sc.Frame.String())
		return nil
	},
}

var sceneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scenes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, path, err := openScenes()
		if err != nil {
			return err
		}
		names := store.Names()
		if len(names) == 0 {
			fmt.Printf("No scenes in %s\n", path)
			return nil
		}

		headerStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %-9s %s", "Name", "Universe", "Channels")))
		for _, name := range names {
			sc, err := store.Get(name)
			if err != nil {
				continue
			}
			fmt.Printf("%-20s %-9d %d\n", sc.Name, sc.Universe, sc.Frame.Size())
			sc.Frame.Release()
		}
		return nil
	},
}

var sceneDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, path, err := openScenes()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		if err := store.Save(path); err != nil {
			return err
		}
		fmt.Printf("Deleted scene %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sceneCmd)
	sceneCmd.AddCommand(sceneSaveCmd, sceneShowCmd, sceneListCmd, sceneDeleteCmd)

	sceneSaveCmd.Flags().IntP("universe", "u", 0, "Universe the scene is meant for")
}
