package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multirag/internal/domain"
)

var (
	_ domain.Summarizer = (*LeadSummarizer)(nil)
	_ domain.Summarizer = (*FrequencySummarizer)(nil)
)

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	args := m.Called(ctx, text, maxLength)
	return args.String(0), args.Error(1)
}

func TestLead_FirstThreeSentences(t *testing.T) {
	s := NewLeadSummarizer(0)
	got, err := s.Summarize(context.Background(), "  One. Two. Three. Four. Five.  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "One. Two. Three.", got)
}

func TestLead_ShortText(t *testing.T) {
	s := NewLeadSummarizer(3)
	got, err := s.Summarize(context.Background(), "No terminal punctuation here", 0)
	require.NoError(t, err)
	assert.Equal(t, "No terminal punctuation here", got)

	got, err = s.Summarize(context.Background(), " \n ", 0)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestLead_WordBudget(t *testing.T) {
	s := NewLeadSummarizer(1)
	got, err := s.Summarize(context.Background(), "a b c d e f", 3)
	require.NoError(t, err)
	assert.Equal(t, "a b c", got)
}

func TestFrequency_KeepsOrderWithinBudget(t *testing.T) {
	text := "Revenue grew strongly. The cafeteria menu changed. Revenue growth came from exports. Weather was mild."
	got, err := NewFrequencySummarizer().Summarize(context.Background(), text, 8)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strings.Fields(got)), 8)
	assert.Contains(t, got, "Revenue grew strongly.")
	assert.NotContains(t, got, "Weather")
}

func TestFrequency_LongSingleSentenceIsTruncated(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize(context.Background(), "one two three four five six.", 4)
	require.NoError(t, err)
	assert.Equal(t, "one two three four", got)
}

func TestFrequency_Blank(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithFallback_PrimaryWins(t *testing.T) {
	primary := &mockSummarizer{}
	primary.On("Summarize", mock.Anything, "some text", DefaultMaxLength).Return("model summary", nil)

	s := WithFallback(primary, nil, nil)
	got, err := s.Summarize(context.Background(), "some text", 0)
	require.NoError(t, err)
	assert.Equal(t, "model summary", got)
	primary.AssertExpectations(t)
}

func TestWithFallback_PrimaryFails(t *testing.T) {
	logger, hook := test.NewNullLogger()
	primary := &mockSummarizer{}
	primary.On("Summarize", mock.Anything, mock.Anything, 50).Return("", errors.New("connection refused"))

	s := WithFallback(primary, NewLeadSummarizer(1), logrus.NewEntry(logger))
	got, err := s.Summarize(context.Background(), "First. Second.", 50)
	require.NoError(t, err)
	assert.Equal(t, "First.", got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestWithFallback_PrimaryEmpty(t *testing.T) {
	primary := &mockSummarizer{}
	primary.On("Summarize", mock.Anything, mock.Anything, mock.Anything).Return("  ", nil)

	logger, _ := test.NewNullLogger()
	s := WithFallback(primary, nil, logrus.NewEntry(logger))
	got, err := s.Summarize(context.Background(), "Only sentence", 10)
	require.NoError(t, err)
	assert.Equal(t, "Only sentence", got)
}

func TestWithFallback_NilPrimaryAndBlankInput(t *testing.T) {
	primary := &mockSummarizer{}
	s := WithFallback(primary, nil, nil)
	got, err := s.Summarize(context.Background(), "\n\t", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	primary.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)

	got, err = WithFallback(nil, nil, nil).Summarize(context.Background(), "A. B. C. D.", 0)
	require.NoError(t, err)
	assert.Equal(t, "A. B. C.", got)
}
