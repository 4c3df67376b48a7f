package notifications

// Notifier surfaces a toast-style notice to the user.
type Notifier interface {
	Notify(title, body string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string)

func (f NotifierFunc) Notify(title, body string) { f(title, body) }
