package logger

import "time"

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field in milliseconds
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.Milliseconds()}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// --- Domain-specific field helpers ---

func UserID(id string) Field {
	return Field{Key: "user_id", Value: id}
}

func Email(email string) Field {
	return Field{Key: "email", Value: email}
}

func Component(name string) Field {
	return Field{Key: "component", Value: name}
}

func Operation(op string) Field {
	return Field{Key: "operation", Value: op}
}

func OperationID(id string) Field {
	return Field{Key: "operation_id", Value: id}
}

func RowNumber(row int) Field {
	return Field{Key: "row", Value: row}
}

func FileName(name string) Field {
	return Field{Key: "file_name", Value: name}
}

func Count(count int) Field {
	return Field{Key: "count", Value: count}
}

func Status(status int) Field {
	return Field{Key: "status", Value: status}
}

func Method(method string) Field {
	return Field{Key: "method", Value: method}
}

func Path(path string) Field {
	return Field{Key: "path", Value: path}
}

func RemoteIP(ip string) Field {
	return Field{Key: "remote_ip", Value: ip}
}

func Provider(provider string) Field {
	return Field{Key: "provider", Value: provider}
}
