// Package toolexec runs external neuroimaging tools and classifies how they
// finished. Both execution modes share one Command shape: the native runner
// invokes the binary directly, while the docker runner wraps it in a
// container that mounts every host path at the same container path, so
// callers build identical argument lists either way.
package toolexec
