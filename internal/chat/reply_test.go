package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanReplyAddsMissingPHPOpenTag(t *testing.T) {
	in := "Here:\n```php\necho 'hi';\n?>\n```"
	out := CleanReply(in)
	assert.Equal(t, "Here:\n```php\n<?php\necho 'hi';\n?>\n\n```", out)
}

func TestCleanReplyTagsUnlabelledBlockAsPHP(t *testing.T) {
	out := CleanReply("```\necho 1; ?>```")
	assert.True(t, strings.HasPrefix(out, "```php\n<?php\necho 1; ?>"), out)
}

func TestCleanReplyLeavesTaggedPHPAlone(t *testing.T) {
	in := "```php\n<?php echo 1; ?>\n```"
	assert.Equal(t, in, CleanReply(in))
}

func TestCleanReplyClosesUnbalancedFence(t *testing.T) {
	assert.Equal(t, "```js\nlet a = 1\n```", CleanReply("```js\nlet a = 1"))
	assert.Equal(t, "plain text", CleanReply("plain text"))
}

func TestFallbackReplyMentionsMessage(t *testing.T) {
	for i := range fallbackTemplates {
		reply := fallbackReply("channels", func(int) int { return i })
		assert.Contains(t, reply, "channels")
	}
	assert.Contains(t, fallbackReply("x", func(int) int { return 99 }), "x")
}
