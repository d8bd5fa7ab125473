// Package http exposes the website service over the sites REST contract.
//
// Routes:
//   - GET   /sections/definitions
//   - GET   /websites/{podcastId}, POST /websites/{podcastId}
//   - GET   /websites/{podcastId}/sections, PATCH /websites/{podcastId}/sections
//   - PATCH /websites/{podcastId}/sections/order
//   - PATCH /websites/{podcastId}/sections/{sectionId}/toggle
//   - PATCH /websites/{podcastId}/sections/{sectionId}/config
//   - PATCH /websites/{podcastId}/css
//   - POST  /websites/{podcastId}/publish, POST /websites/{podcastId}/reset
//   - GET   /sites/{subdomain}/preview
//
// Host applications can register handlers on their own mux as needed.
package http
