package log

import "log/slog"

func Topic[T ~string](topic T) slog.Attr {
	return slog.String("topic", string(topic))
}

func MessageType[T ~string](typ T) slog.Attr {
	return slog.String("message_type", string(typ))
}

func ConnID[T ~string](id T) slog.Attr {
	return slog.String("conn_id", string(id))
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func CloseCode(code int) slog.Attr {
	return slog.Int("close_code", code)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
