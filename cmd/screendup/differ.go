package main

import "hash/crc32"

// frameDiffer detects unchanged frames via a CRC32 of the raw pixel data.
type frameDiffer struct {
	lastHash    uint32
	hasLastHash bool
}

func newFrameDiffer() *frameDiffer {
	return &frameDiffer{}
}

// HasChanged reports whether pix differs from the previous frame. The first
// frame always counts as changed.
func (d *frameDiffer) HasChanged(pix []byte) bool {
	h := crc32.ChecksumIEEE(pix)
	if d.hasLastHash && h == d.lastHash {
		return false
	}
	d.lastHash = h
	d.hasLastHash = true
	return true
}

