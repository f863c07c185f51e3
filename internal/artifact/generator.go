package artifact

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/alialfonick-commits/loru/internal/storage"
)

const qrSize = 512

// Generator derives a scannable code pointing at a durable media address and
// uploads it next to the media. Failure here is non-fatal for the item: the
// raw media is still printable without the code.
type Generator struct {
	store *storage.Store
}

func NewGenerator(store *storage.Store) *Generator {
	return &Generator{store: store}
}

// Generate encodes sourceAddress as a QR PNG, uploads it under the artifact
// namespace for videoID, and returns its address.
func (g *Generator) Generate(ctx context.Context, videoID, sourceAddress string) (string, error) {
	png, err := qrcode.Encode(sourceAddress, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr for %s: %w", videoID, err)
	}

	addr, err := g.store.Put(ctx, storage.ArtifactKey(videoID), png, "image/png")
	if err != nil {
		return "", fmt.Errorf("upload qr for %s: %w", videoID, err)
	}
	return addr, nil
}
