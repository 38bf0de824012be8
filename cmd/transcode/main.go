// This tool converts a wav or aiff file into a G.726 compressed wav file,
// optionally downmixing and resampling on the way.
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
	flagSet := flag.NewFlagSet("transcode", flag.ContinueOnError)

	input := flagSet.String("input", "", "the wav or aiff file to convert")
	output := flagSet.String("output", "", "filename to write to")
	bits := flagSet.Int("bits", 2, "bits per coded sample (2-5)")
	rate := flagSet.Int("rate", 0, "resample to this rate, 0 keeps the source rate")
	mono := flagSet.Bool("mono", true, "downmix multichannel input")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *input == "" || *output == "" {
		return fmt.Errorf("you must set the -input and -output flags")
	}

	err = g726.ConvertFile(*input, *output, g726.ConvertOptions{
		SampleRate:    *rate,
		BitsPerSample: *bits,
		Mono:          *mono,
	})
	if err != nil {
		return err
	}

	dur, err := g726.GetDuration(*output)
	if err != nil {
		return err
	}

	log.Printf("wrote %s (%s)", *output, dur)

	return nil
}
