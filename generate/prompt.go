package generate

import (
	"fmt"
	"strings"
)

// instructionTemplate は上流に送る指示文の雛形です。
// プロンプトはそのまま埋め込まれ、エスケープはしません（指示の上書きに対しては無防備）。
const instructionTemplate = `Generate a complete HTML website based on this description: "%s".
Return only the HTML code with embedded CSS and JavaScript.
Make it modern, responsive, and functional. Include proper meta tags, viewport settings, and semantic HTML structure.`

// BuildInstruction はユーザーのプロンプトを指示文に埋め込みます。
func BuildInstruction(prompt string) string {
	return fmt.Sprintf(instructionTemplate, prompt)
}

// ValidatePrompt は前後の空白を除いて空でないことを確認します。
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &Error{Kind: KindInvalidPrompt, Detail: MsgInvalidPrompt}
	}
	return nil
}
