// Package preprocess turns uploaded image bytes into the fixed-shape input
// tensor expected by the sign classifier.
package preprocess

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Model input geometry: batch 1, Size x Size pixels, RGB.
const (
	Size     = 32
	Channels = 3
	Batch    = 1
)

// ErrDecode is returned when the payload is not a decodable image.
var ErrDecode = errors.New("decode image failed")

// Tensor is a dense NHWC float32 tensor with values in [0, 1].
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

// At returns the value for pixel (x, y), channel c of batch 0.
func (t *Tensor) At(x, y, c int) float32 {
	w, ch := int(t.Shape[2]), int(t.Shape[3])
	return t.Data[(y*w+x)*ch+c]
}

// Decode sniffs and decodes data. It returns the decoder's format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(ErrDecode, "empty payload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(ErrDecode, "%v", err)
	}
	if img.Bounds().Empty() {
		return nil, format, errors.Wrapf(ErrDecode, "%s image has no pixels", format)
	}
	return img, format, nil
}

// ToTensor converts img to RGB, resizes it to Size x Size without keeping
// the aspect ratio and scales channels to [0, 1].
func ToTensor(img image.Image, opts ...Option) *Tensor {
	o := newOptions(opts...)

	small := resize.Resize(Size, Size, toRGB(img), o.interp)

	t := &Tensor{
		Shape: [4]int64{Batch, Size, Size, Channels},
		Data:  make([]float32, Batch*Size*Size*Channels),
	}
	b := small.Bounds()
	i := 0
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			c := color.NRGBAModel.Convert(small.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			t.Data[i] = float32(c.R) / 255
			t.Data[i+1] = float32(c.G) / 255
			t.Data[i+2] = float32(c.B) / 255
			i += Channels
		}
	}
	return t
}

// FromBytes runs Decode followed by ToTensor.
func FromBytes(data []byte, opts ...Option) (*Tensor, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ToTensor(img, opts...), nil
}

// toRGB copies img into an opaque NRGBA image. Alpha is dropped rather than
// composited, grayscale and paletted sources are expanded to three channels.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x, y, c)
		}
	}
	return dst
}
