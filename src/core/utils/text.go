package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	markdownLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownEmphasis = regexp.MustCompile("\\*\\*|__|`+|~~")
	markdownLine     = regexp.MustCompile(`(?m)^\s*(?:#{1,6}|>)\s+`)
	spaces           = regexp.MustCompile(`\s+`)
)

// RemoveMarkdownSyntax 去掉模型输出中的 markdown 标记，链接只保留文字。
// 单词中的连字符和单个星号保留。
func RemoveMarkdownSyntax(text string) string {
	cleaned := markdownLink.ReplaceAllString(text, "$1")
	cleaned = markdownLine.ReplaceAllString(cleaned, "")
	cleaned = markdownEmphasis.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(spaces.ReplaceAllString(cleaned, " "))
}

// TruncateAtSentence 超过 maxRunes 时在最后一个句末标点处截断，找不到标点时硬截断并加省略号
func TruncateAtSentence(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}

	head := string(runes[:maxRunes])
	lastIndex := -1
	for _, punct := range []string{". ", "! ", "? ", "。", "！", "？"} {
		if idx := strings.LastIndex(head, punct); idx > lastIndex {
			lastIndex = idx
		}
	}
	if lastIndex <= 0 {
		return strings.TrimSpace(head) + "…"
	}

	// 保留标点本身
	_, size := utf8.DecodeRuneInString(head[lastIndex:])
	return head[:lastIndex+size]
}
