package main

import (
	"flag"
	"fmt"
	"log"
	"math"
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
	flagSet := flag.NewFlagSet("gen-sine", flag.ContinueOnError)

	output := flagSet.String("output", "output.wav", "filename to write to")
	frequency := flagSet.Float64("frequency", 440, "frequency in hertz to generate")
	length := flagSet.Float64("length", 5, "length in seconds of output file")
	rate := flagSet.Int("rate", 8000, "sample rate in hertz")
	bits := flagSet.Int("bits", 4, "bits per coded sample (2-5)")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	resolver := g726.NewResolver()

	variant, exact, err := resolver.Resolve(*bits)
	if err != nil {
		return err
	}

	if !exact {
		log.Printf("no exact codec for %d bits, falling back to %s", *bits, variant)
	}

	log.Printf("generating a %f sec %s sine wav at %f hz", *length, variant, *frequency)

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", *output, err)
	}
	defer file.Close()

	wavOut := g726.NewVariantEncoder(file, *rate, variant)
	numSamples := int(float64(*rate) * *length)

	for i := 0; i < numSamples; i++ {
		fv := math.Sin(float64(i) / float64(*rate) * *frequency * 2 * math.Pi)

		v := float32(fv)

		err := wavOut.WriteFrame(v)
		if err != nil {
			return err
		}
	}

	return wavOut.Close()
}
