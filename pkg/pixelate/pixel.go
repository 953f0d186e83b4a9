// Package pixelate turns a screenshot into the mosaic shown behind the lock.
package pixelate

import (
	"encoding/binary"
	"fmt"
)

// Pixel is a single color with 8-bit channels.
type Pixel struct {
	A uint8
	R uint8
	G uint8
	B uint8
}

// Unpack converts a packed 0xAARRGGBB word into a Pixel.
func Unpack(v uint32) Pixel {
	return Pixel{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
}

// Pack converts p into a packed 0xAARRGGBB word, the inverse of Unpack.
func (p Pixel) Pack() uint32 {
	return uint32(p.A)<<24 | uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

// Image is a rectangular buffer of pixels stored row by row.
type Image struct {
	Width  int
	Height int
	Pix    []Pixel
}

// New returns a zeroed width×height image.
func New(width, height int) *Image {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("pixelate: negative image size %dx%d", width, height))
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, width*height),
	}
}

// At returns the pixel at (x, y).
func (img *Image) At(x, y int) Pixel {
	return img.Pix[y*img.Width+x]
}

// Set sets the pixel at (x, y).
func (img *Image) Set(x, y int, p Pixel) {
	img.Pix[y*img.Width+x] = p
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	c := &Image{
		Width:  img.Width,
		Height: img.Height,
		Pix:    make([]Pixel, len(img.Pix)),
	}
	copy(c.Pix, img.Pix)
	return c
}

// DecodeZPixmap reads 32 bits per pixel image data as returned by the X server.
// stride is the number of bytes per row and must be at least 4*width.
// Every 4 byte group is a packed 0xAARRGGBB word in the server's byte order.
func DecodeZPixmap(width, height, stride int, data []byte, bigEndian bool) (*Image, error) {
	if stride < width*4 {
		return nil, fmt.Errorf("stride %d too small for width %d", stride, width)
	}
	if len(data) < stride*height {
		return nil, fmt.Errorf("image data is %d bytes, need %d", len(data), stride*height)
	}

	order := byteOrder(bigEndian)
	img := New(width, height)
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		for x := 0; x < width; x++ {
			img.Pix[y*width+x] = Unpack(order.Uint32(row[x*4:]))
		}
	}

	return img, nil
}

// EncodeZPixmap returns the rows from firstRow up to, but not including, lastRow as tightly
// packed 32 bits per pixel data in the requested byte order.
func (img *Image) EncodeZPixmap(firstRow, lastRow int, bigEndian bool) []byte {
	order := byteOrder(bigEndian)
	out := make([]byte, (lastRow-firstRow)*img.Width*4)
	for i, p := range img.Pix[firstRow*img.Width : lastRow*img.Width] {
		order.PutUint32(out[i*4:], p.Pack())
	}
	return out
}

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
