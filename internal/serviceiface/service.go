// Package serviceiface defines the lifecycle contract the app manager
// sequences services through.
package serviceiface

type Service interface {
	Name() string
	Start() error
	Stop() error
}
