package glr

import "testing"

func TestInputStreamPeekMatchesFreshReset(t *testing.T) {
	// spec.md section 8: "InputStream.peek(k) at position p always
	// returns the same code unit that a fresh stream reset to p + k
	// returns as next (accounting for gaps)."
	text := "hello world"
	is := NewInputStream(stringInput{text}, nil)
	is.Reset(2, &Token{})

	for k := 0; k < 5; k++ {
		got := is.Peek(k)

		fresh := NewInputStream(stringInput{text}, nil)
		fresh.Reset(2+k, &Token{})
		want := fresh.Next()

		if got != want {
			t.Fatalf("Peek(%d) at pos 2 = %d, want %d (fresh Next at %d)", k, got, want, 2+k)
		}
	}
}

func TestInputStreamNextAtEnd(t *testing.T) {
	is := NewInputStream(stringInput{"ab"}, nil)
	is.Reset(2, &Token{})
	if got := is.Next(); got != -1 {
		t.Fatalf("Next() at end = %d, want -1", got)
	}
	if got := is.Peek(5); got != -1 {
		t.Fatalf("Peek() past end = %d, want -1", got)
	}
}

func TestInputStreamGapElision(t *testing.T) {
	// spec.md concrete scenario 5: a gap over "ab###cd" must tokenize
	// as if the text were "abcd", with token positions at 0,1,5,6.
	text := "ab###cd"
	gaps := []InputGap{{From: 2, To: 5}}
	is := NewInputStream(stringInput{text}, gaps)
	is.Reset(0, &Token{})

	var seen []int
	var positions []int
	for {
		ch := is.Next()
		if ch < 0 {
			break
		}
		seen = append(seen, ch)
		positions = append(positions, is.Pos())
		is.Advance(1)
	}

	want := []int{'a', 'b', 'c', 'd'}
	if len(seen) != len(want) {
		t.Fatalf("read %d chars across the gap, want %d (%q)", len(seen), len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("char %d = %q, want %q", i, rune(seen[i]), rune(want[i]))
		}
	}

	// Token positions must land at 0,1,5,6 (scenario 5): in particular,
	// advancing past 'b' (physical 1) by one logical position must skip
	// straight over the gap to 'c' at physical 5, not land on physical 2
	// (the gap's own, absent, first index).
	wantPositions := []int{0, 1, 5, 6}
	for i := range wantPositions {
		if positions[i] != wantPositions[i] {
			t.Fatalf("position after reading char %d = %d, want %d", i, positions[i], wantPositions[i])
		}
	}
}

func TestInputStreamGapAdvanceSkipsWidth(t *testing.T) {
	text := "ab###cd"
	gaps := []InputGap{{From: 2, To: 5}}
	is := NewInputStream(stringInput{text}, gaps)
	is.Reset(0, &Token{})

	is.Advance(2) // consume "ab": the raw target position 2 is the gap's
	// own (absent) first index, so it must resolve straight through to
	// the gap's far edge, 5, rather than resting on 2.
	if is.Pos() != 5 {
		t.Fatalf("pos after advancing past ab = %d, want 5 (landing on a gap's own From must resolve to its To)", is.Pos())
	}
	if got := is.Next(); got != 'c' {
		t.Fatalf("Next() at the gap boundary = %q, want 'c' (gap must be elided)", rune(got))
	}
	is.Advance(1)
	if is.Pos() != 6 {
		t.Fatalf("pos after advancing across the gap = %d, want 6 (physical 'd' position)", is.Pos())
	}
}

func TestInputStreamReadRemovesGapContent(t *testing.T) {
	text := "ab###cd"
	gaps := []InputGap{{From: 2, To: 5}}
	is := NewInputStream(stringInput{text}, gaps)

	if got := is.Read(0, 7); got != "abcd" {
		t.Fatalf("Read across gap = %q, want %q", got, "abcd")
	}
}

func TestInputStreamLookaheadTracksFurthestPeek(t *testing.T) {
	is := NewInputStream(stringInput{"abcdef"}, nil)
	tok := &Token{}
	is.Reset(0, tok)

	is.Next()
	is.Peek(3)
	if tok.LookAhead != 3 {
		t.Fatalf("LookAhead after Peek(3) = %d, want 3", tok.LookAhead)
	}
	is.Advance(1)
	if tok.LookAhead != 3 {
		t.Fatalf("LookAhead regressed after a smaller Advance: got %d, want still 3", tok.LookAhead)
	}
	is.Advance(4)
	if tok.LookAhead != 5 {
		t.Fatalf("LookAhead after Advance past prior peek = %d, want 5", tok.LookAhead)
	}
}

func TestInputStreamAcceptTokenUsesResolvePos(t *testing.T) {
	text := "ab###cd"
	gaps := []InputGap{{From: 2, To: 5}}
	is := NewInputStream(stringInput{text}, gaps)
	tok := &Token{}
	is.Reset(0, tok)
	is.Advance(2) // consume "ab": resolves straight through the gap to 5

	is.AcceptToken(Symbol(1), 2) // "end 2 logical positions further"
	if tok.End != 7 {
		t.Fatalf("AcceptToken end = %d, want 7 (the 3-wide gap is free, then 2 more physical chars)", tok.End)
	}
}

func TestInputStreamChunkRotationAcrossMultipleChunks(t *testing.T) {
	// A host whose Chunk() always returns a short prefix forces repeated
	// chunk misses and chunk/chunk2 rotation.
	is := NewInputStream(shortChunkInput{"abcdefghij"}, nil)
	is.Reset(0, &Token{})

	var out []byte
	for {
		ch := is.Next()
		if ch < 0 {
			break
		}
		out = append(out, byte(ch))
		is.Advance(1)
	}
	if string(out) != "abcdefghij" {
		t.Fatalf("read %q via rotating chunks, want %q", out, "abcdefghij")
	}
}

// shortChunkInput hands back at most 3 bytes per Chunk call, forcing the
// InputStream's two-chunk cache to rotate repeatedly.
type shortChunkInput struct{ s string }

func (si shortChunkInput) Length() int { return len(si.s) }

func (si shortChunkInput) Chunk(from int) string {
	if from < 0 || from >= len(si.s) {
		return ""
	}
	end := from + 3
	if end > len(si.s) {
		end = len(si.s)
	}
	return si.s[from:end]
}

func (si shortChunkInput) Read(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(si.s) {
		to = len(si.s)
	}
	if from >= to {
		return ""
	}
	return si.s[from:to]
}
