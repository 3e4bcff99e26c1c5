package cli

// Prompter asks the user to pick an alternative or confirm a destructive step.
// Tests substitute a scripted implementation.
type Prompter interface {
	Select(label string, items []string, defaultValue string) (int, string, error)
	Confirm(label string, defaultYes bool) (bool, error)
}
