// This tool prints the format metadata and duration of a wav file using
// only its container header, so it stays fast on very large files.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cwbudde/g726"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("g726info", flag.ContinueOnError)

	path := flagSet.String("path", "", "the wav file to inspect")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *path == "" {
		return fmt.Errorf("you must set the -path flag")
	}

	hdr, err := g726.ParseHeader(*path)
	if err != nil {
		return err
	}

	fmt.Printf("file:            %s\n", *path)
	fmt.Printf("format tag:      %d\n", hdr.FormatTag)
	fmt.Printf("variant:         %s\n", hdr.Variant)
	fmt.Printf("channels:        %d\n", hdr.NumChannels)
	fmt.Printf("sample rate:     %d Hz\n", hdr.SampleRate)
	fmt.Printf("bits per sample: %d\n", hdr.BitsPerSample)
	fmt.Printf("frames:          %d\n", hdr.TotalFrames)
	fmt.Printf("data bytes:      %d\n", hdr.DataLength)
	fmt.Printf("duration:        %s\n", hdr.Duration())

	return nil
}
