package compression

import (
	"bytes"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// frameMagic opens every framed payload. The byte after it holds the length
// of the algorithm name that follows.
var frameMagic = []byte("VIAR\x01")

// Frame compresses data with c and prefixes the algorithm header.
func Frame(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "compression failed").
			WithDetail("algorithm", string(c.Algorithm()))
	}
	name := string(c.Algorithm())
	out := make([]byte, 0, len(frameMagic)+1+len(name)+len(body))
	out = append(out, frameMagic...)
	out = append(out, byte(len(name)))
	out = append(out, name...)
	return append(out, body...), nil
}

// Unframe reads the header written by Frame and decompresses the payload
// with the algorithm it names.
func Unframe(data []byte) ([]byte, error) {
	alg, body, err := splitFrame(data)
	if err != nil {
		return nil, err
	}
	c, err := NewCompressor(&Config{Algorithm: alg})
	if err != nil {
		return nil, err
	}
	return c.Decompress(body)
}

// FrameAlgorithm returns the algorithm named in a framed payload's header.
func FrameAlgorithm(data []byte) (Algorithm, error) {
	alg, _, err := splitFrame(data)
	return alg, err
}

func splitFrame(data []byte) (Algorithm, []byte, error) {
	if !bytes.HasPrefix(data, frameMagic) || len(data) < len(frameMagic)+1 {
		return "", nil, errors.New(errors.ErrorTypeData, "payload is not a framed artifact")
	}
	rest := data[len(frameMagic):]
	n := int(rest[0])
	if len(rest) < 1+n {
		return "", nil, errors.New(errors.ErrorTypeData, "truncated artifact header")
	}
	alg, err := ParseAlgorithm(string(rest[1 : 1+n]))
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrorTypeData, "artifact header names an unknown algorithm")
	}
	return alg, rest[1+n:], nil
}
