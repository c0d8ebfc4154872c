package natsx

import (
	"cmp"
	"os"

	"github.com/nats-io/nats.go"
)

// ClientName is the connection name reported to the server.
const ClientName = "hoot"

// URL resolves the server address: url when set, then the NATS_URL
// environment variable, then the nats default.
func URL(url string) string {
	return cmp.Or(url, os.Getenv("NATS_URL"), nats.DefaultURL)
}

// NewClient connects to the server at URL(url). Without options the
// connection is named ClientName and compressed.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name(ClientName), nats.Compression(true))
	}
	return nats.Connect(URL(url), opts...)
}
