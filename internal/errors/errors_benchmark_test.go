package errors

import (
	"fmt"
	"testing"
)

func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)
	err := fmt.Errorf("benchmark error")

	b.ReportAllocs()
	for b.Loop() {
		_ = New(err).Component("ringbuffer").Category(CategoryBuffer).Build()
	}
}

func BenchmarkErrorCreationWithContext(b *testing.B) {
	SetTelemetryReporter(nil)
	err := fmt.Errorf("benchmark error")

	b.ReportAllocs()
	for b.Loop() {
		_ = New(err).
			Component("capture").
			Category(CategoryAudioSource).
			Context("device", "default").
			Context("operation", "init_device").
			Build()
	}
}

func BenchmarkPrivacyScrubbing(b *testing.B) {
	message := "Error at https://api.example.com?api_key=secret123&token=abc"
	for b.Loop() {
		_ = scrubMessageForPrivacy(message)
	}
}
