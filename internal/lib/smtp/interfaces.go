package smtp

import "io"

// Client описывает минимальный контракт SMTP-клиента для отправки письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
