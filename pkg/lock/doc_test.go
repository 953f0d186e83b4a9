package lock_test

import (
	"github.com/MatthiasKunnen/pixlock/pkg/lock"
	"log"
	"os"
)

func ExampleSessionHint() {
	hint, err := lock.NewSessionHint(os.Getenv("XDG_SESSION_ID"))
	if err != nil {
		log.Fatalf("Failed to initialize logind session hint: %v", err)
	}
	defer func() {
		if err := hint.Close(); err != nil {
			log.Printf("Failed to close dbus: %v", err)
		}
	}()

	// Lock every screen here, then publish the state
	if err := hint.SetLocked(true); err != nil {
		log.Printf("Failed to set locked to true: %v", err)
	}

	locked, err := hint.GetLocked()
	if err != nil {
		log.Printf("Failed to get locked hint: %v", err)
	}
	log.Printf("Session locked: %t", locked)

	// After the password was entered
	if err := hint.SetLocked(false); err != nil {
		log.Printf("Failed to set locked to false: %v", err)
	}
}
