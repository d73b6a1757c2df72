// Command rang modifies a cover photo, then embeds and extracts data
// in the clear/modified difference of a JPEG pair using the Rang-JPEG
// matrix-coding algorithm.
package main

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/thvl3/cover/internal/cliutil"
	"github.com/thvl3/cover/pkg/container"
	"github.com/thvl3/cover/pkg/rang"
)

// outputJPEGQuality is the quality setting used when this tool encodes
// a JPEG from pixels ('rang modify'), high enough to keep the blur
// subtle. 'rang embed' re-encodes coefficients and uses no quality
// setting.
const outputJPEGQuality = 95

const lengthPrefixSize = 4

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error

	switch os.Args[1] {
	case "modify":
		err = runModify(os.Args[2:])
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
	fmt.Println("usage: rang <modify|embed|extract> [flags]")
}

func runModify(args []string) error {
	fs := flag.NewFlagSet("modify", flag.ExitOnError)
	in := fs.String("in", "", "input image path (any format image/jpeg, image/png, bmp or tiff can decode)")
	out := fs.String("out", "", "output JPEG path for the blurred cover")
	fs.Parse(args)

	if *in == "" || *out == "" {
		return fmt.Errorf("rang modify: -in and -out are required")
	}

	img, err := loadImage(*in)
	if err != nil {
		return err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	pixels := removeAlpha(img)

	rang.ModifyImage(width, height, pixels)

	if err := saveJPEG(*out, pixels, width, height); err != nil {
		return err
	}

	cliutil.PrintSuccess("wrote blurred cover to %s", *out)

	return nil
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	clearPath := fs.String("clear", "", "original (unmodified) JPEG path")
	modifiedPath := fs.String("modified", "", "blurred JPEG produced by 'rang modify', re-compressed")
	out := fs.String("out", "", "output (stego) JPEG path")
	payloadPath := fs.String("payload", "", "file to hide")
	paddingBits := fs.Int("padding", rang.DefaultPaddingBitsCount, "spare sample positions to resolve a singular matrix")
	fs.Parse(args)

	if *clearPath == "" || *modifiedPath == "" || *out == "" || *payloadPath == "" {
		return fmt.Errorf("rang embed: -clear, -modified, -out and -payload are required")
	}

	clearData, err := cliutil.ReadFile(*clearPath)
	if err != nil {
		return err
	}

	modifiedData, err := cliutil.ReadFile(*modifiedPath)
	if err != nil {
		return err
	}

	clear, err := container.Read(clearData)
	if err != nil {
		return fmt.Errorf("rang embed: %w", err)
	}

	modified, err := container.Read(modifiedData)
	if err != nil {
		return fmt.Errorf("rang embed: %w", err)
	}

	entropy := make([]byte, rang.EntropyLength)
	if _, err := rand.Read(entropy); err != nil {
		return fmt.Errorf("rang embed: %w", err)
	}

	ctx, err := rang.Initialize(clear, modified, entropy)
	if err != nil {
		return fmt.Errorf("rang embed: %w", err)
	}

	cliutil.PrintInfo("usable (clear/modified difference) coefficients: %d", ctx.UsableCount)

	payload, err := cliutil.ReadFile(*payloadPath)
	if err != nil {
		return err
	}

	framed := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[lengthPrefixSize:], payload)

	used, err := ctx.Embed(framed, *paddingBits)
	if err != nil {
		return fmt.Errorf("rang embed: %w", err)
	}

	cliutil.PrintInfo("used %d of %d spare padding bits", used, *paddingBits)

	changed := ctx.Apply()
	cliutil.PrintInfo("changed %d coefficients", changed)

	encoded, err := clear.Write()
	if err != nil {
		return fmt.Errorf("rang embed: %w", err)
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
	fs.Parse(args)

	if *in == "" || *out == "" {
		return fmt.Errorf("rang extract: -in and -out are required")
	}

	data, err := cliutil.ReadFile(*in)
	if err != nil {
		return err
	}

	c, err := container.Read(data)
	if err != nil {
		return fmt.Errorf("rang extract: %w", err)
	}

	ctx, err := rang.Initialize(c, nil, nil)
	if err != nil {
		return fmt.Errorf("rang extract: %w", err)
	}

	recovered := make([]byte, c.CoefficientsCount/8)
	ctx.Extract(recovered)

	if len(recovered) < lengthPrefixSize {
		return fmt.Errorf("rang extract: container too small to hold a length prefix")
	}

	length := binary.BigEndian.Uint32(recovered[:lengthPrefixSize])
	if int(length) > len(recovered)-lengthPrefixSize {
		return fmt.Errorf("rang extract: recovered length %d exceeds container capacity", length)
	}

	payload := recovered[lengthPrefixSize : lengthPrefixSize+int(length)]

	if err := cliutil.WriteFile(*out, payload); err != nil {
		return err
	}

	cliutil.PrintSuccess("recovered %d bytes to %s", len(payload), *out)

	return nil
}

// loadImage decodes any of the image formats the reference tool's
// corpus pulls in support for: JPEG and PNG via the standard library,
// BMP and TIFF via golang.org/x/image.
func loadImage(path string) (image.Image, error) {
	data, err := cliutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	_ = format

	if img, err := bmp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	if img, err := tiff.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("rang: %s is not a recognizable image", path)
}

// removeAlpha flattens img onto an opaque white background and packs
// it into 0xAABBGGRR pixels, the layout pkg/rang.ModifyImage expects.
func removeAlpha(img image.Image) []uint32 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels := make([]uint32, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			// Alpha-composite over opaque white, then drop to 8 bits per channel.
			r8 := compositeOverWhite(r, a)
			g8 := compositeOverWhite(g, a)
			b8 := compositeOverWhite(b, a)

			pixels[y*width+x] = 0xff000000 | uint32(b8)<<16 | uint32(g8)<<8 | uint32(r8)
		}
	}

	return pixels
}

// compositeOverWhite takes an alpha-premultiplied 16-bit channel value
// (as color.Color.RGBA returns it), undoes the premultiplication,
// alpha-blends it against opaque white and returns the result as an
// 8-bit value.
func compositeOverWhite(c, a uint32) uint8 {
	if a == 0 {
		return 0xff
	}

	straight := (c * 0xffff) / a
	blended := (straight*a + 0xffff*(0xffff-a)) / 0xffff

	return uint8(blended >> 8)
}

func saveJPEG(path string, pixels []uint32, width, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(p),
				G: uint8(p >> 8),
				B: uint8(p >> 16),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: outputJPEGQuality}); err != nil {
		return fmt.Errorf("rang: encode JPEG: %w", err)
	}

	return cliutil.WriteFile(path, buf.Bytes())
}
