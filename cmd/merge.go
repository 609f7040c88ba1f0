/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allbin/go-dmx"
)

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <frame> <frame>...",
	Short: "Merge frames highest-takes-precedence",
	Long: `Merge two or more frames and print the result.

Every channel of the result is the highest value any frame has for it.
The result is as long as the longest frame; shorter frames count as 0
past their end.

Example usage:
  dmx merge "255,0,0" "0,128" "0,0,0,40"
  # 255,128,0,40`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := mergeFrames(args)
		if err != nil {
			return err
		}
		defer merged.Release()
		fmt.Println(merged.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

// mergeFrames HTP merges the text frames in order
func mergeFrames(texts []string) (*dmx.Buffer, error) {
	merged := dmx.NewBuffer()
	for i, text := range texts {
		frame, err := parseFrame(text)
		if err != nil {
			merged.Release()
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
		merged.HTPMerge(frame)
		frame.Release()
	}
	return merged, nil
}
