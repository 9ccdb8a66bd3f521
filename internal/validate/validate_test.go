package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsBroken_EmptyAnswer(t *testing.T) {
	require.True(t, IsBroken(""))
	require.True(t, IsBroken("   \n\t "))
}

func TestIsBroken_RefusalPhrase(t *testing.T) {
	require.True(t, IsBroken("I'm sorry, I cannot access the requested file."))
	require.True(t, IsBroken("The excerpts do not mention pricing."))
}

func TestIsBroken_GoodAnswer(t *testing.T) {
	require.False(t, IsBroken("The config.yaml file sets max_iterations to 8, per the README."))
}

func TestValidate_PassesThroughGoodAnswer(t *testing.T) {
	out, err := Validate(context.Background(), nil, "a solid cited answer", nil, "what is it?")
	require.NoError(t, err)
	require.Equal(t, "a solid cited answer", out)
}

func TestValidate_NoEvidenceReturnsHonestFailure(t *testing.T) {
	out, err := Validate(context.Background(), nil, "I cannot access the documents.", nil, "what is the license?")
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "what is the license?"))
	require.True(t, strings.Contains(out, "wasn't able to find"))
}
