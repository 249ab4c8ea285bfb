// Package deploy uploads the build output to S3. Keys mirror the
// output directory layout under an optional prefix, and content types
// are set from file extensions so objects serve correctly behind a CDN.
package deploy
