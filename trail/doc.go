// Package trail renders breadcrumb trails and wires the breadcrumb lifecycle
// into a host: the render function, the save hook that invalidates stale
// records, and the preload text for new pages.
package trail
