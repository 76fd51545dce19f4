// Package win32 wraps the handful of user32, gdi32, kernel32 and shell32
// calls spotcursor needs, and provides Thread, a locked OS thread running a
// message loop on which hooks, the overlay window and the tray icon live.
//
// Everything except this comment is Windows-only.
package win32
