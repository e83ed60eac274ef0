// Package yaz0 implements the Yaz0 compression format used by Nintendo
// GameCube and Wii titles.
//
// A Yaz0 stream is a 16-byte header followed by groups of up to eight
// tokens. Each group starts with a flag byte whose bits, read high to low,
// select a literal byte (1) or a back-reference into the already decoded
// output (0):
//
//	header:  "Yaz0" | u32 BE decoded size | u32 alignment | u32 reserved
//	short:   NR RR        length = N+2 (3..17), distance = RRR+1
//	long:    0R RR MM     length = MM+0x12 (18..273), distance = RRR+1
//
// Back-references may overlap the bytes they produce, which is how runs are
// encoded, so decoding copies one byte at a time.
package yaz0
