package config

import (
	"errors"
	"fmt"

	"hotelqa/internal/domain"
)

// Environment variables holding the vector store connection parameters.
const (
	EnvConnectionString = "COUCHBASE_CONNECTION_STRING"
	EnvUsername         = "COUCHBASE_USERNAME"
	EnvPassword         = "COUCHBASE_PASSWORD"
	EnvBucket           = "COUCHBASE_BUCKET"
	EnvScope            = "COUCHBASE_SCOPE"
	EnvCollection       = "COUCHBASE_COLLECTION"
	EnvSearchIndex      = "COUCHBASE_SEARCH_INDEX"
)

// ErrMissingEnv is wrapped by errors reporting an unset required variable.
var ErrMissingEnv = errors.New("required environment variable is missing")

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// StoreEnv holds the connection parameters read from the environment.
// All fields are non-empty once LoadStoreEnv succeeds.
type StoreEnv struct {
	ConnectionString string
	Username         string
	Password         string
	Bucket           string
	Scope            string
	Collection       string
	SearchIndex      string
}

// LoadStoreEnv reads every required variable through lookup. The first
// missing or empty variable is reported by name as a configuration error.
func LoadStoreEnv(lookup LookupFunc) (*StoreEnv, error) {
	var env StoreEnv
	fields := []struct {
		name string
		dst  *string
	}{
		{EnvConnectionString, &env.ConnectionString},
		{EnvUsername, &env.Username},
		{EnvPassword, &env.Password},
		{EnvBucket, &env.Bucket},
		{EnvScope, &env.Scope},
		{EnvCollection, &env.Collection},
		{EnvSearchIndex, &env.SearchIndex},
	}
	for _, f := range fields {
		v, ok := lookup(f.name)
		if !ok || v == "" {
			return nil, domain.ConfigurationError("load environment", &MissingEnvError{Name: f.name})
		}
		*f.dst = v
	}
	return &env, nil
}

// MissingEnvError names the variable that was not set.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("required environment variable '%s' is missing", e.Name)
}

func (e *MissingEnvError) Is(target error) bool { return target == ErrMissingEnv }
