package chat

import (
	"fmt"
	"regexp"
	"strings"
)

const fence = "```"

var fencedBlock = regexp.MustCompile("```(\\w+)?\\n?([\\s\\S]*?)```")

// CleanReply repairs common defects in model output before display. PHP
// blocks that close with ?> but never open get a <?php line, and an unbalanced
// code fence is closed.
func CleanReply(content string) string {
	cleaned := content

	if strings.Contains(cleaned, "?>") && !hasPHPOpenTag(cleaned) {
		cleaned = fencedBlock.ReplaceAllStringFunc(cleaned, func(block string) string {
			parts := fencedBlock.FindStringSubmatch(block)
			language, code := parts[1], parts[2]
			if (language == "php" || language == "") && strings.Contains(code, "?>") && !hasPHPOpenTag(code) {
				code = "<?php\n" + code
			}
			if language == "" {
				language = "php"
			}
			return fence + language + "\n" + code + "\n" + fence
		})
	}

	if strings.Count(cleaned, fence)%2 != 0 {
		cleaned += "\n" + fence
	}
	return cleaned
}

func hasPHPOpenTag(s string) bool {
	return strings.Contains(s, "<?php") || strings.Contains(s, "<?=")
}

var fallbackTemplates = []string{
	"I'd be happy to help you with that! %s is a great topic to explore.\n\n" +
		"A few things worth keeping in mind:\n\n" +
		"- **Start with the basics**: a solid foundation saves time later\n" +
		"- **Follow established patterns**: they prevent a lot of issues\n\n" +
		"```go\nfunc greet(name string) string {\n\treturn \"Hello, \" + name + \"!\"\n}\n```\n\n" +
		"*Note: This is a fallback response. Configure a webhook in the admin panel to connect your preferred AI service.*",
	"Thanks for asking about %s! Let me break this down.\n\n" +
		"**What you should know:**\n" +
		"- The fundamentals matter most\n" +
		"- There are several approaches you could take\n\n" +
		"What part would you like to explore first?\n\n" +
		"*Configure your webhook in the admin panel for more advanced AI capabilities.*",
	"That's a good question about %s.\n\n" +
		"Focus on the core principles first; the details make more sense once those are clear. " +
		"Start simple and iterate.\n\n" +
		"*For more advanced AI assistance, configure the webhook in the admin panel.*",
}

func fallbackReply(message string, pick func(n int) int) string {
	index := 0
	if pick != nil {
		index = pick(len(fallbackTemplates))
	}
	if index < 0 || index >= len(fallbackTemplates) {
		index = 0
	}
	return fmt.Sprintf(fallbackTemplates[index], strings.TrimSpace(message))
}
