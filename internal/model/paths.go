package model

// Document paths within the store. Registrations live in a sub-collection
// keyed by user id, which is what makes "at most one per (event, user)"
// checkable with a single point read.
const (
	EventsCollection   = "events"
	BookingsCollection = "bookings"
)

// EventPath returns the document path for an event.
func EventPath(eventID string) string {
	return EventsCollection + "/" + eventID
}

// RegistrationsPath returns the registration collection path for an event.
func RegistrationsPath(eventID string) string {
	return EventPath(eventID) + "/registrations"
}

// RegistrationPath returns the registration document path for a user within
// an event.
func RegistrationPath(eventID, userID string) string {
	return RegistrationsPath(eventID) + "/" + userID
}

// BookingPath returns the document path for a booking.
func BookingPath(bookingID string) string {
	return BookingsCollection + "/" + bookingID
}
