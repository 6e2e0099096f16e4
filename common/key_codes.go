package common

// Key codes carried in window key events.
// They match GLFW key codes, which use ASCII values for printable keys.
const (
	KeyW     = 87
	KeyA     = 65
	KeyS     = 83
	KeyD     = 68
	KeyQ     = 81
	KeyE     = 69
	KeySpace = 32
	KeyEsc   = 256
)
