package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/conversation"
)

func TestIncrementalPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &incrementalPrinter{w: &buf}

	user := conversation.Turn{Role: conversation.RoleUser, Content: "q"}
	step := func(content string) {
		p.update([]conversation.Turn{user, {Role: conversation.RoleAssistant, Content: content}})
	}

	p.update([]conversation.Turn{user})
	step("")
	step("Za")
	step("Zakat ")
	step("Zakat ")
	assert.Equal(t, "Zakat ", buf.String())

	step("Other")
	assert.Equal(t, "Zakat \nOther", buf.String())
}

func TestExecute_AskRequiresQuestion(t *testing.T) {
	err := Execute(context.Background(), []string{"ask"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question")
}

func TestExecute_ServeRejectsBadPort(t *testing.T) {
	err := Execute(context.Background(), []string{"serve", "--env-file", "", "--port", "70000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestExecute_UnknownCommand(t *testing.T) {
	assert.Error(t, Execute(context.Background(), []string{"bogus"}))
}
