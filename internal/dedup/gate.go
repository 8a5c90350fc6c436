package dedup

import "image"

// Reason explains why a frame was or was not classified as a duplicate.
type Reason int

const (
	// ReasonFirstFrame marks the very first frame seen by a gate.
	ReasonFirstFrame Reason = iota
	// ReasonHashSimilar means the average hash and delta score both read
	// as similar to the previous frame.
	ReasonHashSimilar
	// ReasonDeltaSimilar means only the pixel delta read as similar; the
	// hash disagreed but not enough pixels moved to call it a change.
	ReasonDeltaSimilar
	// ReasonSignificantChange means the frame differs enough to end the
	// current screen state.
	ReasonSignificantChange
	// ReasonMotionNoise means the hash matched but the pixel delta was
	// large — a mouse cursor or video frame moving over an otherwise
	// static screen. Counted as a duplicate, but flagged for the caller.
	ReasonMotionNoise
)

func (r Reason) String() string {
	switch r {
	case ReasonFirstFrame:
		return "first_frame"
	case ReasonHashSimilar:
		return "hash_similar"
	case ReasonDeltaSimilar:
		return "delta_similar"
	case ReasonMotionNoise:
		return "motion_noise"
	case ReasonSignificantChange:
		return "significant_change"
	default:
		return "unknown"
	}
}

// Config tunes the gate's similarity thresholds.
type Config struct {
	// HashThreshold is the maximum Hamming distance (0-64) between
	// consecutive average hashes still considered similar.
	HashThreshold int
	// DeltaThreshold is the maximum normalized mean pixel delta (0-1)
	// still considered similar.
	DeltaThreshold float64
	// DeltaExtreme is the normalized mean pixel delta above which a
	// frame is always treated as significant change, regardless of hash
	// similarity — a safety valve against large motion that nonetheless
	// hashes similarly.
	DeltaExtreme float64
	// DeltaSize is the edge length of the grayscale thumbnail used for
	// the pixel-delta comparison.
	DeltaSize int
}

// DefaultConfig matches the thresholds carried over from the capture
// engine this gate was ported from.
func DefaultConfig() Config {
	return Config{
		HashThreshold:  8,
		DeltaThreshold: 0.02,
		DeltaExtreme:   0.5,
		DeltaSize:      32,
	}
}

// Result is the outcome of checking one frame against the gate's state.
type Result struct {
	IsDuplicate bool
	Hash        AverageHash
	HammingDist int
	DeltaScore  float64
	Reason      Reason
}

// Gate holds the rolling state needed to compare each new frame against
// the last one admitted. Not safe for concurrent use; callers serialize
// frames through a single gate per capture stream.
type Gate struct {
	config    Config
	lastHash  *AverageHash
	lastThumb *grayThumbnail
}

// New constructs a gate with the given config.
func New(config Config) *Gate {
	return &Gate{config: config}
}

// Reset clears the gate's history, as if no frame had ever been seen.
// Called on meeting start (state.Builder.StartMeeting) so state doesn't
// leak across sessions.
func (g *Gate) Reset() {
	g.lastHash = nil
	g.lastThumb = nil
}

// Check computes the frame's average hash and delta thumbnail, compares
// them against the last admitted frame, and decides whether this frame is
// a duplicate.
func (g *Gate) Check(img image.Image) Result {
	hash := computeAverageHash(img)
	thumb := newGrayThumbnail(img, g.config.DeltaSize)

	if g.lastHash == nil {
		g.commit(hash, thumb)
		return Result{IsDuplicate: false, Hash: hash, HammingDist: 0, DeltaScore: 0, Reason: ReasonFirstFrame}
	}

	dist := hash.Distance(*g.lastHash)
	delta := thumb.meanAbsDiff(*g.lastThumb)

	hashSimilar := dist <= g.config.HashThreshold
	deltaSimilar := delta <= g.config.DeltaThreshold
	deltaExtreme := delta > g.config.DeltaExtreme

	result := Result{Hash: hash, HammingDist: dist, DeltaScore: delta}

	switch {
	case deltaExtreme:
		result.IsDuplicate = false
		result.Reason = ReasonSignificantChange
	case hashSimilar && deltaSimilar:
		result.IsDuplicate = true
		result.Reason = ReasonHashSimilar
	case !hashSimilar && deltaSimilar:
		result.IsDuplicate = true
		result.Reason = ReasonDeltaSimilar
	case hashSimilar && !deltaSimilar:
		result.IsDuplicate = true
		result.Reason = ReasonMotionNoise
	default:
		result.IsDuplicate = false
		result.Reason = ReasonSignificantChange
	}

	g.commit(hash, thumb)
	return result
}

func (g *Gate) commit(hash AverageHash, thumb grayThumbnail) {
	g.lastHash = &hash
	g.lastThumb = &thumb
}
