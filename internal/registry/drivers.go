package registry

import (
	_ "github.com/Alia5/padmap/driver/linuxjs" // Register linux joystick driver
	_ "github.com/Alia5/padmap/driver/virtual" // Register virtual pad driver
	_ "github.com/Alia5/padmap/driver/xinput"  // Register xinput driver
)
