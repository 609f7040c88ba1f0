// Package dmx holds DMX512 channel frames and combines them into universes.
//
// A Buffer is one frame of up to MaxChannels channel values. Buffers are
// copy-on-write: Copy and Assign share storage, and the first write to a
// shared buffer gives the writer its own copy. Handing a frame to another
// component is therefore O(1) no matter how many channels it holds.
//
//	a := dmx.NewBufferFromBytes([]byte{255, 0, 128})
//	b := a.Copy()         // shares a's storage
//	b.SetChannel(1, 64)   // b now has a private copy; a is unchanged
//
// Frames can be written and read in the textual form "0,128,255":
//
//	var frame dmx.Buffer
//	if !frame.SetFromString("255,,64") {
//	    // not a valid frame
//	}
//	fmt.Println(frame.String()) // 255,0,64
//
// # Merging
//
// HTPMerge combines two frames channel by channel, keeping the higher
// value (highest takes precedence). A Universe applies that across any
// number of named sources and feeds the result to output ports:
//
//	u, _ := dmx.NewUniverse(1, dmx.WithName("stage"))
//	u.SetSource("console", consoleFrame)
//	u.SetSource("fader", faderFrame)
//	dev, _ := widget.NewDevice("usbpro", "/dev/ttyUSB0", widget.NewUSBPro())
//	u.AddOutput(dev.OutputPort())
//	err := u.Refresh(ctx)
//
// Input ports (for example an Art-Net receiver) are read on every Refresh
// and appear as sources named after the port.
//
// # Concurrency
//
// Buffer is not safe for concurrent use, but buffers that share storage
// may be used from different goroutines. Universe is safe for concurrent
// use.
package dmx
