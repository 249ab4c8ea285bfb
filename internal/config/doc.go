// Package config loads and validates staticgo.json project configuration.
//
// The configuration file lives at the project root. All fields are optional;
// Load fills sensible defaults so a project with only a pages/ directory
// works without any configuration at all.
package config
