// Command eph5 embeds and extracts data in a JPEG's DCT coefficients
// using the Eph5 matrix-encoding algorithm.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"github.com/thvl3/cover/internal/cliutil"
	"github.com/thvl3/cover/pkg/container"
	"github.com/thvl3/cover/pkg/eph5"
)

// defaultPassword is used when -password is not given, matching the
// reference tool's zero-configuration default.
const defaultPassword = "desu"

// lengthPrefixSize is the width of the big-endian byte count eph5
// embed writes ahead of the payload, so extract doesn't need the
// caller to already know how long the hidden data is.
const lengthPrefixSize = 4

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error

	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "embed":
		err = runEmbed(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		cliutil.PrintError("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: eph5 <analyze|embed|extract> [flags]")
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	in := fs.String("in", "", "input JPEG path")
	password := fs.String("password", defaultPassword, "password")
	fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("eph5 analyze: -in is required")
	}

	ctx, _, err := load(*in, *password, false)
	if err != nil {
		return err
	}

	cliutil.PrintInfo("usable coefficients: %d (of which %d are at +-1)", ctx.UsableCount, ctx.OneCount)

	var guaranteed, maximum []int
	var expected []float64
	for i := 0; i < eph5.MaximumK; i++ {
		guaranteed = append(guaranteed, ctx.GuaranteedCapacity[i])
		maximum = append(maximum, ctx.MaximumCapacity[i])
		expected = append(expected, ctx.ExpectedCapacity[i])
	}

	cliutil.PrintCapacityTable(guaranteed, maximum, expected)

	return nil
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	in := fs.String("in", "", "input (cover) JPEG path")
	out := fs.String("out", "", "output (stego) JPEG path")
	payloadPath := fs.String("payload", "", "file to hide")
	password := fs.String("password", defaultPassword, "password")
	k := fs.Int("k", 0, "matrix parameter 1-7, 0 to auto-select the largest k that fits")
	fs.Parse(args)

	if *in == "" || *out == "" || *payloadPath == "" {
		return fmt.Errorf("eph5 embed: -in, -out and -payload are required")
	}

	ctx, c, err := load(*in, *password, true)
	if err != nil {
		return err
	}

	payload, err := cliutil.ReadFile(*payloadPath)
	if err != nil {
		return err
	}

	framed := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[lengthPrefixSize:], payload)

	chosenK := *k
	if chosenK == 0 {
		var guaranteed []int
		for i := 0; i < eph5.MaximumK; i++ {
			guaranteed = append(guaranteed, ctx.GuaranteedCapacity[i])
		}

		chosenK = cliutil.BestFitK(guaranteed, len(framed))
		if chosenK == 0 {
			return fmt.Errorf("eph5 embed: payload (%d bytes) does not fit even at k=1 (guaranteed %d bytes)", len(payload), guaranteed[0])
		}

		cliutil.PrintInfo("auto-selected k=%d", chosenK)
	}

	if chosenK < 1 || chosenK > eph5.MaximumK {
		return fmt.Errorf("eph5 embed: -k must be between 1 and %d", eph5.MaximumK)
	}

	if len(framed) > ctx.MaximumCapacity[chosenK-1] {
		return fmt.Errorf("eph5 embed: payload (%d framed bytes) exceeds the container's maximum capacity of %d bytes at k=%d", len(framed), ctx.MaximumCapacity[chosenK-1], chosenK)
	}

	embedded := ctx.Embed(framed, chosenK)
	if embedded < len(framed) {
		return fmt.Errorf("eph5 embed: only %d of %d bytes fit at k=%d", embedded, len(framed), chosenK)
	}

	changed, zeroed := ctx.Apply()
	cliutil.PrintInfo("changed %d coefficients (%d zeroed)", changed, zeroed)

	encoded, err := c.Write()
	if err != nil {
		return fmt.Errorf("eph5 embed: %w", err)
	}

	if err := cliutil.WriteFile(*out, encoded); err != nil {
		return err
	}

	cliutil.PrintSuccess("wrote %s (%d bytes hidden)", *out, len(payload))

	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	in := fs.String("in", "", "input (stego) JPEG path")
	out := fs.String("out", "", "output path for recovered data")
	password := fs.String("password", defaultPassword, "password")
	k := fs.Int("k", 1, "matrix parameter 1-7 the data was embedded with")
	fs.Parse(args)

	if *in == "" || *out == "" {
		return fmt.Errorf("eph5 extract: -in and -out are required")
	}

	if *k < 1 || *k > eph5.MaximumK {
		return fmt.Errorf("eph5 extract: -k must be between 1 and %d", eph5.MaximumK)
	}

	ctx, _, err := load(*in, *password, false)
	if err != nil {
		return err
	}

	var data [eph5.MaximumK][]byte
	for i := range data {
		data[i] = make([]byte, ctx.ExtractableLength[i])
	}

	ctx.Extract(data)

	recovered := data[*k-1]
	if len(recovered) < lengthPrefixSize {
		return fmt.Errorf("eph5 extract: container too small to hold a length prefix at k=%d", *k)
	}

	length := binary.BigEndian.Uint32(recovered[:lengthPrefixSize])
	if int(length) > len(recovered)-lengthPrefixSize {
		return fmt.Errorf("eph5 extract: recovered length %d exceeds container capacity; wrong k or password?", length)
	}

	payload := recovered[lengthPrefixSize : lengthPrefixSize+int(length)]

	if err := cliutil.WriteFile(*out, payload); err != nil {
		return err
	}

	cliutil.PrintSuccess("recovered %d bytes to %s", len(payload), *out)

	return nil
}

func load(path, password string, writable bool) (*eph5.Context, *container.Container, error) {
	data, err := cliutil.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	c, err := container.Read(data)
	if err != nil {
		return nil, nil, fmt.Errorf("eph5: %w", err)
	}

	key := eph5.ExpandPassword(password)

	ctx, err := eph5.Initialize(c, key, writable)
	if err != nil {
		return nil, nil, fmt.Errorf("eph5: %w", err)
	}

	return ctx, c, nil
}
