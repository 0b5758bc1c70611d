package torrentcreator

import (
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/yotomir/torrent-creator/bencode"
	"github.com/yotomir/torrent-creator/digest"
)

// InfoHash computes the 40-char lowercase hex info-hash of info: the
// SHA-1 of the Bencoded info dictionary. Cheap to call repeatedly
// since it never re-hashes piece data, only the dictionary bytes.
func InfoHash(info Info) string {
	sum := digest.Sum(bencode.Marshal(info.ToBencode()))
	return hex.EncodeToString(sum[:])
}

// HashComputer recomputes the info-hash asynchronously while
// guaranteeing that a late-arriving result never overwrites a newer
// one: each Request mints a monotonically increasing epoch, and a
// result commits only if no result of a later epoch has committed
// before it.
type HashComputer struct {
	epoch  atomic.Int64
	mu     sync.Mutex
	hash   string
	issued int64
}

// Request schedules a recomputation of info's hash and returns
// immediately. Once the hash is ready, onResult (if non-nil) receives
// the hash committed at that moment: this request's own hash, or the
// newer one when a later request has already committed.
func (c *HashComputer) Request(info Info, onResult func(hash string)) {
	epoch := c.epoch.Add(1)

	go func() {
		hash := InfoHash(info)

		c.mu.Lock()
		if epoch >= c.issued {
			c.issued = epoch
			c.hash = hash
		} else {
			hash = c.hash
		}
		current := c.hash
		c.mu.Unlock()

		if onResult != nil {
			onResult(current)
		}
	}()
}

// Current returns the most recently committed info-hash, or "" if no
// request has completed yet.
func (c *HashComputer) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hash
}
