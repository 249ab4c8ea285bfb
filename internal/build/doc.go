// Package build materializes the site: every route rendered to a static
// HTML file in the output directory, public assets copied (optionally
// with content-hash fingerprints), and an asset manifest written for
// runtime resolution.
//
// Dynamic routes need concrete paths to materialize; the config's
// build.prerender map supplies them. Dynamic routes without prerender
// entries are skipped with a warning. A single failing route does not
// abort the build, but a build where every route fails does.
package build
