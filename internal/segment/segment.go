// Package segment splits a decoded token stream into phrases at silence gaps.
package segment

import (
	"strings"

	"github.com/rbright/casl/internal/decoder"
)

// Processor rewrites the raw phrase before it is matched.
type Processor interface {
	Process(text string) string
}

// Result describes the phrase heard in one decoding window.
type Result struct {
	// SafeToRefresh reports that the window ends in silence longer than the
	// gap threshold, so the phrase is complete.
	SafeToRefresh bool
	PhraseRaw     string
	Phrase        string
	// LastGapStartMS is where silence began after the last sound.
	LastGapStartMS uint32
	// LastGapEndMS is where the current phrase began, one timestep early.
	// Zero when no gap was seen.
	LastGapEndMS uint32
}

// Segment walks tokens in order. A gap longer than gapMS between sounds
// discards the text accumulated so far. lengthMS is the window duration.
func Segment(tokens []decoder.Token, lengthMS uint32, gapMS uint32, pre Processor) Result {
	var text strings.Builder
	var lastSound, lastGap uint32

	for _, tok := range tokens {
		if tok.Timestep > lastSound && (tok.Timestep-lastSound)*decoder.TimestepMS > gapMS {
			text.Reset()
			lastGap = tok.Timestep
		}
		text.WriteString(tok.Text)
		if tok.Timestep > lastSound && strings.TrimSpace(tok.Text) != "" {
			lastSound = tok.Timestep
		}
	}

	soundMS := lastSound * decoder.TimestepMS
	safe := lengthMS > soundMS && lengthMS-soundMS > gapMS

	// timesteps are only accurate to about one step
	if lastGap != 0 {
		lastGap--
	}

	raw := text.String()
	phrase := raw
	if pre != nil {
		phrase = pre.Process(raw)
	}

	return Result{
		SafeToRefresh:  safe,
		PhraseRaw:      raw,
		Phrase:         phrase,
		LastGapStartMS: (lastSound + 1) * decoder.TimestepMS,
		LastGapEndMS:   lastGap * decoder.TimestepMS,
	}
}

// Carryover returns the samples that seed the next window. A complete phrase
// keeps the last carryover samples; an unfinished one keeps everything from
// the start of the phrase so it can be decoded whole next time.
func Carryover(buffer []int16, r Result, carryover int, sampleRate int) []int16 {
	var start int
	if r.SafeToRefresh {
		start = max(len(buffer)-max(carryover, 0), 0)
	} else {
		start = min(int(r.LastGapEndMS)*sampleRate/1000, len(buffer))
	}

	out := make([]int16, len(buffer)-start)
	copy(out, buffer[start:])
	return out
}
