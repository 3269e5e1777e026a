// Package image stores compiled programs on disk as canonical CBOR, so a
// program can be validated and folded once and run many times.
package image

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/bfi/pkg/bytecode"
)

const (
	// Magic identifies a compiled image.
	Magic = "BFIC"

	// Version is the image format version written by this package.
	Version = 1

	// Ext is the conventional file extension for images.
	Ext = ".bfc"
)

var (
	// ErrBadMagic reports data that is not an image.
	ErrBadMagic = errors.New("image: bad magic")

	// ErrVersion reports an image written by an unsupported format version.
	ErrVersion = errors.New("image: unsupported version")

	// ErrHashMismatch reports commands that do not hash to the recorded
	// source hash.
	ErrHashMismatch = errors.New("image: source hash mismatch")

	// ErrCodeMismatch reports optimized code that is not the folding of
	// the image's commands.
	ErrCodeMismatch = errors.New("image: code does not match commands")
)

// Image is a compiled program. Commands always holds the validated command
// sequence; Code holds the folded form when Optimized is set.
type Image struct {
	Magic      string             `cbor:"1,keyasint"`
	Version    uint               `cbor:"2,keyasint"`
	Optimized  bool               `cbor:"3,keyasint"`
	SourceHash [32]byte           `cbor:"4,keyasint"`
	Commands   []bytecode.Command `cbor:"5,keyasint"`
	Code       []Instruction      `cbor:"6,keyasint,omitempty"`
}

// Instruction is the wire form of a bytecode.Instruction.
type Instruction struct {
	_   struct{} `cbor:",toarray"`
	Op  uint8
	Arg uint
}

// Hash returns the content hash of a command sequence. Images and cache
// entries are keyed by it.
func Hash(cmds []bytecode.Command) [32]byte {
	buf := make([]byte, len(cmds))
	for i, c := range cmds {
		buf[i] = byte(c)
	}
	return sha256.Sum256(buf)
}

// HashString returns the hex form of Hash.
func HashString(cmds []bytecode.Command) string {
	h := Hash(cmds)
	return hex.EncodeToString(h[:])
}

// FromSource validates cmds and builds an image, folding them first when
// optimize is set.
func FromSource(cmds []bytecode.Command, optimize bool) (*Image, error) {
	if err := bytecode.CheckCommands(cmds); err != nil {
		return nil, err
	}
	img := &Image{
		Magic:      Magic,
		Version:    Version,
		Optimized:  optimize,
		SourceHash: Hash(cmds),
		Commands:   cmds,
	}
	if optimize {
		code, err := bytecode.Optimize(cmds)
		if err != nil {
			return nil, err
		}
		img.Code = make([]Instruction, len(code))
		for i, in := range code {
			img.Code[i] = Instruction{Op: uint8(in.Op), Arg: in.Arg}
		}
	}
	return img, nil
}

// HashString returns the hex form of the image's source hash.
func (img *Image) HashString() string {
	return hex.EncodeToString(img.SourceHash[:])
}

// Instructions converts Code back to bytecode instructions.
func (img *Image) Instructions() []bytecode.Instruction {
	code := make([]bytecode.Instruction, len(img.Code))
	for i, in := range img.Code {
		code[i] = bytecode.Instruction{Op: bytecode.Opcode(in.Op), Arg: in.Arg}
	}
	return code
}

// Program rebuilds a validated executable from the image. Images are
// checked again here since they come from outside the process.
func (img *Image) Program(opts ...bytecode.Option) (bytecode.Executable, error) {
	if !img.Optimized {
		return bytecode.NewProgram(img.Commands, opts...)
	}
	return bytecode.NewOptimizedProgram(img.Instructions(), opts...)
}

// WriteFile marshals img and writes it to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and unmarshals the image at path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
