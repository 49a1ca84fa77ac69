package shared

// AuthResult holds the credentials produced by an interactive sign-in
type AuthResult struct {
	Token    string
	UserID   string
	Username string
}

// Prompter is the terminal an interactive sign-in talks to
type Prompter interface {
	Println(a ...any)
	Prompt(label string) (string, error)
	PromptSecret(label string) (string, error)
}
