// Command tachomon is a host-side serial monitor: it opens the
// board's USB-serial console (the same port original_source's
// MicroBitSerial exposed) and mirrors the ANSI refresh to the
// operator's terminal, forwarding keystrokes back. Wiring style
// grounded on examples/tmc2209/main.go's manual construct-then-run and
// the sergev-floppy pack manifest's go.bug.st/serial usage.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	var portName string
	var baud int

	cmd := &cobra.Command{
		Use:   "tachomon",
		Short: "Monitor and control a real tachomotor board over its serial console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(portName, baud)
		},
	}
	cmd.Flags().StringVarP(&portName, "port", "p", "", "serial port device (required)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 115200, "serial baud rate")
	cmd.MarkFlagRequired("port")
	return cmd
}

func run(portName string, baud int) error {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("tachomon: opening %s: %w", portName, err)
	}
	defer port.Close()

	restore, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err == nil {
		defer term.Restore(int(os.Stdin.Fd()), restore)
	}

	errc := make(chan error, 2)
	go func() {
		_, err := io.Copy(os.Stdout, port)
		errc <- err
	}()
	go func() {
		_, err := io.Copy(port, os.Stdin)
		errc <- err
	}()
	return <-errc
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
