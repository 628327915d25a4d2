// Package split runs the first layer of a network on an encrypted input. The
// client keeps the CKKS secret key; the server holds the first layer's weights and
// only ever sees ciphertexts.
package split

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

func init() {
	gob.Register(InputPayload{})
	gob.Register(SumsPayload{})
}

// MessageType defines message types exchanged between client and server
type MessageType int

const (
	MsgInput MessageType = iota
	MsgSums
	MsgDone
	MsgError
)

// Message is one frame of the protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// InputPayload carries the encrypted input vector
type InputPayload struct {
	RequestID  int
	Ciphertext []byte
}

// SumsPayload carries one encrypted weighted sum per first-layer neuron
type SumsPayload struct {
	RequestID   int
	Ciphertexts [][]byte
}

// Protocol frames messages with gob. It is not safe for concurrent use.
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler. Either side may be nil when the
// handler only sends or only receives.
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

func (p *Protocol) Send(msg *Message) error {
	if p.encoder == nil {
		return errors.New("protocol has no writer")
	}
	return p.encoder.Encode(msg)
}

func (p *Protocol) Receive() (*Message, error) {
	if p.decoder == nil {
		return nil, errors.New("protocol has no reader")
	}
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendInput sends a serialized input ciphertext
func (p *Protocol) SendInput(requestID int, ctBytes []byte) error {
	return p.Send(&Message{
		Type: MsgInput,
		Payload: InputPayload{
			RequestID:  requestID,
			Ciphertext: ctBytes,
		},
	})
}

// SendSums sends the serialized weighted sums
func (p *Protocol) SendSums(requestID int, cts [][]byte) error {
	return p.Send(&Message{
		Type: MsgSums,
		Payload: SumsPayload{
			RequestID:   requestID,
			Ciphertexts: cts,
		},
	})
}

// SendDone signals that no more requests follow
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// ReceiveInput returns io.EOF once the peer has sent MsgDone.
func (p *Protocol) ReceiveInput() (*InputPayload, error) {
	msg, err := p.expect(MsgInput)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(InputPayload)
	if !ok {
		return nil, errors.New("invalid input payload type")
	}
	return &payload, nil
}

func (p *Protocol) ReceiveSums() (*SumsPayload, error) {
	msg, err := p.expect(MsgSums)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(SumsPayload)
	if !ok {
		return nil, errors.New("invalid sums payload type")
	}
	return &payload, nil
}

func (p *Protocol) expect(want MessageType) (*Message, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case want:
		return msg, nil
	case MsgError:
		return nil, errors.Errorf("remote error: %v", msg.Payload)
	case MsgDone:
		return nil, io.EOF
	default:
		return nil, errors.Errorf("expected message %d, got %d", want, msg.Type)
	}
}
