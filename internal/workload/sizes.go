package workload

// Size buckets per message type. A bucket is drawn from the weighted
// distribution, then the size is sampled uniformly within the bucket
// range and clamped to the type's documented bounds.
//
// The bucket shapes reproduce traffic observed in large messaging
// datasets: text is overwhelmingly short, images reflect in-app
// compression, files span documents to short videos, voice notes are
// 3-60s of compressed audio.

type sizeBucket struct {
	weight float64
	lo, hi int // inclusive byte range
}

const (
	textMin = 10
	textMax = 500

	imageMin = 15_000
	imageMax = 1_000_000

	fileMin = 10_000
	fileMax = 10_000_000

	// voice notes: 3-60s at ~6KB/s of compressed audio (Opus/AAC)
	voiceBytesPerSecond = 6_000
	voiceMin            = 3 * voiceBytesPerSecond
	voiceMax            = 60 * voiceBytesPerSecond
)

var textBuckets = []sizeBucket{
	{0.45, 10, 20},   // emojis, "ok", "yes"
	{0.35, 20, 60},   // short replies
	{0.15, 60, 160},  // explanations
	{0.04, 160, 320}, // detailed descriptions
	{0.01, 320, 500}, // long-form text
}

var imageBuckets = []sizeBucket{
	{0.40, 15_000, 30_000},    // thumbnails, stickers
	{0.35, 30_000, 80_000},    // compressed photos
	{0.20, 80_000, 250_000},   // higher quality photos
	{0.04, 250_000, 700_000},  // screenshots, scans
	{0.01, 700_000, 1_000_000}, // near-original photos
}

var fileBuckets = []sizeBucket{
	{0.30, 10_000, 50_000},         // text documents, JSON
	{0.25, 50_000, 200_000},        // PDFs, spreadsheets
	{0.20, 200_000, 800_000},       // presentations, code archives
	{0.15, 800_000, 3_000_000},     // small videos, zips
	{0.10, 3_000_000, 10_000_000},  // large videos, backups
}

var voiceBuckets = []sizeBucket{
	{0.50, 3 * voiceBytesPerSecond, 5 * voiceBytesPerSecond},
	{0.30, 5 * voiceBytesPerSecond, 10 * voiceBytesPerSecond},
	{0.15, 10 * voiceBytesPerSecond, 20 * voiceBytesPerSecond},
	{0.04, 20 * voiceBytesPerSecond, 40 * voiceBytesPerSecond},
	{0.01, 40 * voiceBytesPerSecond, 60 * voiceBytesPerSecond},
}

// sampleSize draws a bucket, samples uniformly within its range and
// clamps to the type bounds.
func (g *Generator) sampleSize(buckets []sizeBucket, min, max int) int {
	v := g.rng.Float64()
	cum := 0.0
	b := buckets[len(buckets)-1]
	for _, cand := range buckets {
		cum += cand.weight
		if v < cum {
			b = cand
			break
		}
	}
	size := b.lo
	if b.hi > b.lo {
		size += g.rng.Intn(b.hi - b.lo + 1)
	}
	if size < min {
		size = min
	}
	if size > max {
		size = max
	}
	return size
}

// textPayload builds a text message of roughly size bytes from a
// typical instant-messaging vocabulary, then trims to size exactly.
func (g *Generator) textPayload(size int) []byte {
	buf := make([]byte, 0, size+12)
	for len(buf) < size {
		if len(buf) > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, chatWords[g.rng.Intn(len(chatWords))]...)
	}
	return buf[:size]
}

var chatWords = []string{
	"hello", "hi", "ok", "yes", "no", "thanks", "please", "sure", "maybe", "great",
	"work", "meeting", "project", "team", "update", "status", "done", "working", "help",
	"message", "chat", "call", "video", "file", "document", "share", "send", "receive",
	"crypto", "security", "privacy", "encryption", "key", "algorithm", "protocol",
	"test", "debug", "error", "fix", "issue", "problem", "solution", "check",
}

// systemCatalog holds Matrix/Element style room and security
// notifications used for System messages.
var systemCatalog = []string{
	"User joined the room",
	"User left the room",
	"User changed their display name",
	"User changed their avatar",
	"User was invited to the room",
	"User was kicked from the room",
	"Room topic changed",
	"Room name changed",
	"Room settings updated",
	"Room was made public",
	"Room was made private",
	"Message was deleted",
	"Message was edited",
	"End-to-end encryption enabled",
	"Device verification completed",
	"Backup key verification required",
	"New device detected",
	"Keys rotated for security",
	"Server maintenance scheduled",
	"Sync completed",
	"Connection restored",
	"Rate limit exceeded",
	"Upload completed",
	"Download completed",
}
