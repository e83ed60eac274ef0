// Package bti decodes BTI textures, the standalone GameCube texture format.
//
// A BTI file is a 32-byte header followed by block-tiled image data and an
// optional palette. Decode converts the first mip level to an
// *image.NRGBA:
//
//	img, err := bti.Decode(data)
//	if err != nil {
//		return err
//	}
//	err = png.Encode(w, img)
//
// Encoding is not supported.
package bti
