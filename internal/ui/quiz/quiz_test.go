package quiz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillprobe/internal/item"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

// feed returns a runner that delivers keys to the model in order.
func feed(keys ...tea.KeyPressMsg) runner {
	return func(_ context.Context, m tea.Model) (tea.Model, error) {
		for _, k := range keys {
			m, _ = m.Update(k)
		}
		return m, nil
	}
}

func testOracle(keys ...tea.KeyPressMsg) *Oracle {
	o := New(WithTotal(5))
	o.run = feed(keys...)
	return o
}

func mcItem() item.Item {
	return item.Item{
		ID: "frac-1", Skill: "fractions", A: 1, B: 0,
		Prompt:       "1/2 + 1/4 = ?",
		Choices:      []string{"2/6", "3/4", "1/8"},
		CorrectIndex: item.Index(1),
	}
}

func TestRespondCorrectByArrows(t *testing.T) {
	o := testOracle(specialKey(tea.KeyDown), specialKey(tea.KeyEnter))
	got, err := o.Respond(mcItem())
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRespondWrongByNumber(t *testing.T) {
	o := testOracle(keyPress('3'))
	got, err := o.Respond(mcItem())
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestRespondNumberOutOfRangeIgnored(t *testing.T) {
	o := testOracle(keyPress('9'), keyPress('2'))
	got, err := o.Respond(mcItem())
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRespondSelfReport(t *testing.T) {
	it := item.Item{ID: "paper-1", Skill: "fractions", A: 1}

	got, err := testOracle(specialKey(tea.KeyEnter)).Respond(it)
	require.NoError(t, err)
	assert.Equal(t, 1, got, "first option reports a correct answer")

	got, err = testOracle(keyPress('j'), specialKey(tea.KeyEnter)).Respond(it)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestRespondAbort(t *testing.T) {
	o := testOracle(specialKey(tea.KeyEscape))
	_, err := o.Respond(mcItem())
	assert.ErrorIs(t, err, ErrAborted)
}

func TestRespondRunnerError(t *testing.T) {
	boom := errors.New("no tty")
	o := New()
	o.run = func(context.Context, tea.Model) (tea.Model, error) { return nil, boom }
	_, err := o.Respond(mcItem())
	assert.ErrorIs(t, err, boom)
}

func TestRespondCountsItems(t *testing.T) {
	var seen []int
	o := New(WithTotal(3))
	o.run = func(_ context.Context, m tea.Model) (tea.Model, error) {
		seen = append(seen, m.(itemModel).progress.Current)
		m, _ = m.Update(specialKey(tea.KeyEnter))
		return m, nil
	}
	for range 2 {
		_, err := o.Respond(mcItem())
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2}, seen)
}

func TestItemViewShowsPromptAndProgress(t *testing.T) {
	m := newItemModel(mcItem(), 2, 5)
	s := m.render()
	assert.Contains(t, s, "1/2 + 1/4 = ?")
	assert.Contains(t, s, "B)  3/4")
	assert.Contains(t, s, "2/5")
}

func TestAskText(t *testing.T) {
	var keys []tea.KeyPressMsg
	for _, r := range "photosynthesis" {
		keys = append(keys, keyPress(r))
	}
	keys = append(keys, specialKey(tea.KeyEnter))

	got, err := testOracle(keys...).AskText(context.Background(), "Explain how plants make food")
	require.NoError(t, err)
	assert.Equal(t, "photosynthesis", got)
}

func TestAskTextEmptyEnterKeepsWaiting(t *testing.T) {
	m := newTextModel("Explain")
	next, cmd := m.Update(specialKey(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.False(t, next.(textModel).input.Submitted())
}

func TestAskTextAbort(t *testing.T) {
	_, err := testOracle(keyPress('a'), specialKey(tea.KeyEscape)).AskText(context.Background(), "Explain")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestTextViewShowsPrompt(t *testing.T) {
	s := newTextModel("Explain fractions").render()
	assert.True(t, strings.Contains(s, "Explain fractions"))
}
