//go:build sdl

package registry

import _ "github.com/Alia5/padmap/driver/sdl" // Register SDL3 joystick driver
