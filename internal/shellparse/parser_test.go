package shellparse

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Segments(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		names []string
		ops   []Op
	}{
		{
			name:  "single command",
			raw:   "git status",
			names: []string{"git"},
			ops:   []Op{OpNone},
		},
		{
			name:  "and chain",
			raw:   "cd /tmp && git pull",
			names: []string{"cd", "git"},
			ops:   []Op{OpNone, OpAnd},
		},
		{
			name:  "all operators",
			raw:   "a && b || c; d | e",
			names: []string{"a", "b", "c", "d", "e"},
			ops:   []Op{OpNone, OpAnd, OpOr, OpSeq, OpPipe},
		},
		{
			name:  "glued operators",
			raw:   "a&&b||c;d|e",
			names: []string{"a", "b", "c", "d", "e"},
			ops:   []Op{OpNone, OpAnd, OpOr, OpSeq, OpPipe},
		},
		{
			name:  "quoted operator is not a split point",
			raw:   `echo "a && b"`,
			names: []string{"echo"},
			ops:   []Op{OpNone},
		},
		{
			name:  "single-quoted semicolon",
			raw:   `sh -c 'a; b'`,
			names: []string{"sh"},
			ops:   []Op{OpNone},
		},
		{
			name:  "empty segments dropped",
			raw:   ";; git status ;",
			names: []string{"git"},
			ops:   []Op{OpSeq},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := Parse(tt.raw)
			require.Len(t, parsed.Segments, len(tt.names))
			for i, seg := range parsed.Segments {
				assert.Equal(t, tt.names[i], seg.Name)
				assert.Equal(t, tt.ops[i], seg.Op)
			}
		})
	}
}

func TestParse_QuoteStripping(t *testing.T) {
	parsed := Parse(`git commit -m "fix: a && b" --author='A B'`)
	require.Len(t, parsed.Segments, 1)
	seg := parsed.Segments[0]
	assert.Equal(t, []string{"commit", "-m", "fix: a && b", "--author=A B"}, seg.Args)
	assert.Equal(t, "A B", seg.Flags["--author"])
}

func TestParse_EscapeInsideDoubleQuotes(t *testing.T) {
	parsed := Parse(`echo "a \"quoted\" word"`)
	require.Len(t, parsed.Segments, 1)
	assert.Equal(t, []string{`a "quoted" word`}, parsed.Segments[0].Args)
}

func TestParse_UnterminatedQuoteDegrades(t *testing.T) {
	// Malformed input must not panic and still yields a best-effort parse.
	parsed := Parse(`git worktree remove "unterminated`)
	require.Len(t, parsed.Segments, 1)
	assert.Equal(t, "git", parsed.Segments[0].Name)
}

func TestParse_Idempotent(t *testing.T) {
	raw := `cd .worktrees/x && git -C /repo worktree remove .worktrees/x | tee log`
	a := Parse(raw)
	b := Parse(raw)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Parse is not deterministic:\n%#v\n%#v", a, b)
	}
}

func TestParse_FlagMap(t *testing.T) {
	parsed := Parse("gh pr merge 42 --squash --repo=o/r -d")
	require.Len(t, parsed.Segments, 1)
	seg := parsed.Segments[0]
	assert.True(t, seg.HasFlag("--squash"))
	assert.True(t, seg.HasFlag("-d"))
	assert.Equal(t, "o/r", seg.Flags["--repo"])
	assert.False(t, seg.HasFlag("--merge"))
}

func TestParse_LoneAmpersandStaysInWord(t *testing.T) {
	parsed := Parse("sleep 5 &")
	require.Len(t, parsed.Segments, 1)
	assert.Equal(t, []string{"5", "&"}, parsed.Segments[0].Args)
}
