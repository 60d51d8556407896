package output

import (
	"context"

	"github.com/crosslink-radio/crosslink/pkg/crosslink/types"
)

// PayloadOutput consumes recovered packets.  Implementations own their
// delivery mechanics; the receiver only ever pushes into Receive.
type PayloadOutput interface {
	Start(ctx context.Context) error
	Receive() chan<- *types.Payload
}
