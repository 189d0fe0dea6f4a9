package led

import (
	"fmt"
	"io"
	"log/slog"

	"go.bug.st/serial"
)

const (
	sof0        = 0xAA
	sof1        = 0x55
	cmdPixels   = 0x20
	DefaultBaud = 115200
)

// SerialStrip sends frames to a microcontroller driving the physical strip.
type SerialStrip struct {
	port io.WriteCloser
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int) (*SerialStrip, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("led: open %s: %w", name, err)
	}
	slog.Info("led: serial port opened", "device", name, "baud", baud)
	return &SerialStrip{port: p}, nil
}

func NewSerialStrip(port io.WriteCloser) *SerialStrip {
	return &SerialStrip{port: port}
}

func (s *SerialStrip) Show(f Frame) error {
	if _, err := s.port.Write(Encode(f)); err != nil {
		return fmt.Errorf("led: write frame: %w", err)
	}
	return nil
}

func (s *SerialStrip) Close() error {
	return s.port.Close()
}

// Encode builds the on-wire representation of a frame:
//
//	[SOF0][SOF1][LEN][CMD][r0 g0 b0 .. r7 g7 b7][CKS]
//
// LEN counts CMD and payload; CKS is the XOR of LEN, CMD and the payload.
func Encode(f Frame) []byte {
	payload := make([]byte, 0, 3*NumPixels)
	for _, c := range f {
		payload = append(payload, c.R, c.G, c.B)
	}

	length := byte(len(payload) + 1)
	cks := length ^ cmdPixels
	for _, b := range payload {
		cks ^= b
	}

	out := []byte{sof0, sof1, length, cmdPixels}
	out = append(out, payload...)
	out = append(out, cks)
	return out
}
