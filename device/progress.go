package device

// Progress is the event type emitted synchronously by Driver during Erase
// and Flash. Consumers type-switch on the concrete variant.
type Progress interface{ isProgress() }

// ProgressMessage carries a free-form status line.
type ProgressMessage struct{ Text string }

func (ProgressMessage) isProgress() {}

// ProgressErase reports progress through Erase: Current pages erased out of
// Total in the Application section.
type ProgressErase struct{ Current, Total int }

func (ProgressErase) isProgress() {}

// ProgressFlash reports progress through Flash: Current pages written out
// of Total in the firmware image.
type ProgressFlash struct{ Current, Total int }

func (ProgressFlash) isProgress() {}

// ProgressFunc is the synchronous progress sink a Driver calls on its own
// goroutine. A nil ProgressFunc is valid; the driver simply emits nothing.
type ProgressFunc func(Progress)
