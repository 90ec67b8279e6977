package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNTriplesHandlesQuotedLiteralsAndQuads(t *testing.T) {
	input := `# a comment
<s> <p> "a literal with spaces" .
<s2> <p2> <o2> <g2> .

`
	quads, err := parseNTriples(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, quads, 2)
	require.Equal(t, Quad{Subject: "<s>", Predicate: "<p>", Object: `"a literal with spaces"`}, quads[0])
	require.Equal(t, Quad{Subject: "<s2>", Predicate: "<p2>", Object: "<o2>", Graph: "<g2>"}, quads[1])
}

func TestParseNTriplesRejectsWrongArity(t *testing.T) {
	_, err := parseNTriples(strings.NewReader("<s> <p> .\n"))
	require.Error(t, err)
}
