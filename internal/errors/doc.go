// Package errors provides structured errors for the staticgo toolchain.
//
// Every error carries a stable code (e.g. "E101"), a category, and an
// optional suggestion so the CLI and the dev overlay can present failures
// consistently. Codes are declared once in the registry and created with
// New:
//
//	return errors.New("E101").WithRoute("blog/[slug]").Wrap(err)
package errors
