// Package service contains the booking use cases.  BookingService turns a
// seat request into a reservation by checking the screening's theater
// capacity and then handing the insert to the ledger, whose unique key on
// (screening, seat) decides races.  Everything after a successful write
// (cache invalidation, event publishing) is best effort and never fails
// the operation.
package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/labstack/gommon/log"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
    "github.com/iliyamo/cinema-reservation-api/internal/queue"
    "github.com/iliyamo/cinema-reservation-api/internal/repository"
    "github.com/iliyamo/cinema-reservation-api/internal/storage"
)

// Ledger is the reservation store.  TryReserve must be atomic with respect
// to (screeningID, seat): concurrent calls for the same pair produce exactly
// one success and ErrSeatTaken for the rest.
type Ledger interface {
    TryReserve(ctx context.Context, screeningID uint64, seat int, name, email string) (model.Reservation, error)
    SeatsTaken(ctx context.Context, screeningID uint64) ([]int, error)
    UpdateStatus(ctx context.Context, id uint64, confirmed bool) (model.Reservation, bool, error)
    AttachDocument(ctx context.Context, id uint64, ref string) (model.Reservation, error)
    Delete(ctx context.Context, id uint64) (model.Reservation, error)
    Get(ctx context.Context, id uint64) (model.Reservation, error)
    List(ctx context.Context) ([]model.Reservation, error)
}

// Catalog resolves a screening to its theater capacity.
type Catalog interface {
    GetScreeningWithTheater(ctx context.Context, screeningID uint64) (model.ScreeningInfo, error)
}

// BlobStore keeps confirmation documents.  Retrieve reports unknown
// references with storage.ErrBlobNotFound.
type BlobStore interface {
    Store(data []byte, suggestedName string) (string, error)
    Retrieve(ref string) ([]byte, error)
    Remove(ref string) error
}

// SeatCache caches taken-seat listings.
type SeatCache interface {
    Get(ctx context.Context, screeningID uint64) ([]int, bool, error)
    Set(ctx context.Context, screeningID uint64, seats []int) error
    Invalidate(ctx context.Context, screeningID uint64) error
}

// EventPublisher delivers reservation events.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Sentinel errors re-exported from the ledger so callers only need this
// package.
var (
    ErrSeatTaken         = repository.ErrSeatTaken
    ErrNotFound          = repository.ErrReservationNotFound
    ErrScreeningNotFound = repository.ErrScreeningNotFound
    ErrDocumentNotFound  = errors.New("document not found")
)

// ValidationError reports a request that refers to something that does not
// exist or is malformed.  It is the caller's fault and not worth retrying.
type ValidationError struct {
    Field   string
    Message string
}

func (e *ValidationError) Error() string { return e.Message }

// CapacityError reports a seat number outside 1..Capacity.
type CapacityError struct {
    Seat     int
    Capacity int
}

func (e *CapacityError) Error() string {
    return fmt.Sprintf("seat %d is outside the theater range 1..%d", e.Seat, e.Capacity)
}

// BookRequest is the input of Book.  Name and email are opaque here; the
// transport validates their shape.
type BookRequest struct {
    ScreeningID   uint64
    SeatNumber    int
    CustomerName  string
    CustomerEmail string
}

// BookingService coordinates bookings.  It holds no state of its own
// between calls, so one instance serves all requests concurrently.
type BookingService struct {
    ledger  Ledger
    catalog Catalog
    blobs   BlobStore
    seats   SeatCache      // optional
    events  EventPublisher // optional
    logger  *log.Logger
    now     func() time.Time
}

// NewBookingService wires the service.  seats and events may be nil.
func NewBookingService(ledger Ledger, catalog Catalog, blobs BlobStore, seats SeatCache, events EventPublisher, logger *log.Logger) *BookingService {
    return &BookingService{
        ledger:  ledger,
        catalog: catalog,
        blobs:   blobs,
        seats:   seats,
        events:  events,
        logger:  logger,
        now:     time.Now,
    }
}

// Book reserves one seat.  Capacity is checked against the catalog;
// occupancy is decided by the ledger's insert alone.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (model.Reservation, error) {
    info, err := s.catalog.GetScreeningWithTheater(ctx, req.ScreeningID)
    if errors.Is(err, repository.ErrScreeningNotFound) {
        return model.Reservation{}, &ValidationError{Field: "screening_id", Message: "unknown screening"}
    }
    if err != nil {
        return model.Reservation{}, fmt.Errorf("lookup screening %d: %w", req.ScreeningID, err)
    }
    if req.SeatNumber < 1 || req.SeatNumber > info.TheaterCapacity {
        return model.Reservation{}, &CapacityError{Seat: req.SeatNumber, Capacity: info.TheaterCapacity}
    }

    res, err := s.ledger.TryReserve(ctx, req.ScreeningID, req.SeatNumber, req.CustomerName, req.CustomerEmail)
    if err != nil {
        if errors.Is(err, ErrSeatTaken) {
            return model.Reservation{}, err
        }
        return model.Reservation{}, fmt.Errorf("reserve seat: %w", err)
    }

    s.invalidate(ctx, res.ScreeningID)
    s.publish(ctx, queue.EventCreated, res)
    return res, nil
}

// SeatsTaken lists the reserved seats of a screening, ascending.  Unknown
// screenings yield ErrScreeningNotFound.  The listing may come from the
// cache and be one write behind.
func (s *BookingService) SeatsTaken(ctx context.Context, screeningID uint64) ([]int, error) {
    if _, err := s.catalog.GetScreeningWithTheater(ctx, screeningID); err != nil {
        return nil, err
    }
    if s.seats != nil {
        if cached, ok, err := s.seats.Get(ctx, screeningID); err != nil {
            s.logger.Warnf("seat cache get screening=%d: %v", screeningID, err)
        } else if ok {
            return cached, nil
        }
    }
    seats, err := s.ledger.SeatsTaken(ctx, screeningID)
    if err != nil {
        return nil, err
    }
    if s.seats != nil {
        if err := s.seats.Set(ctx, screeningID, seats); err != nil {
            s.logger.Warnf("seat cache set screening=%d: %v", screeningID, err)
        }
    }
    return seats, nil
}

// UpdateStatus sets the confirmation flag.  Repeating the same value is a
// no-op; only an unconfirmed -> confirmed transition emits an event.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, confirmed bool) (model.Reservation, error) {
    res, wasConfirmed, err := s.ledger.UpdateStatus(ctx, id, confirmed)
    if err != nil {
        return model.Reservation{}, err
    }
    if confirmed && !wasConfirmed {
        s.publish(ctx, queue.EventConfirmed, res)
    }
    return res, nil
}

// AttachDocument stores data in the blob store and points the reservation
// at it, replacing any earlier document reference.  The previous blob is
// left in place.  If the reservation cannot be updated the new blob is
// removed again.
func (s *BookingService) AttachDocument(ctx context.Context, id uint64, data []byte, name string) (model.Reservation, error) {
    if len(data) == 0 {
        return model.Reservation{}, &ValidationError{Field: "file", Message: "document is empty"}
    }
    if _, err := s.ledger.Get(ctx, id); err != nil {
        return model.Reservation{}, err
    }
    ref, err := s.blobs.Store(data, name)
    if err != nil {
        return model.Reservation{}, fmt.Errorf("store document: %w", err)
    }
    res, err := s.ledger.AttachDocument(ctx, id, ref)
    if err != nil {
        if rmErr := s.blobs.Remove(ref); rmErr != nil {
            s.logger.Warnf("remove orphaned document ref=%s: %v", ref, rmErr)
        }
        return model.Reservation{}, err
    }
    return res, nil
}

// Document returns the attached document and its reference.  A
// reservation without a document, or whose blob has gone missing, yields
// ErrDocumentNotFound.  Other storage failures are returned wrapped.
func (s *BookingService) Document(ctx context.Context, id uint64) ([]byte, string, error) {
    res, err := s.ledger.Get(ctx, id)
    if err != nil {
        return nil, "", err
    }
    if !res.HasDocument() {
        return nil, "", ErrDocumentNotFound
    }
    data, err := s.blobs.Retrieve(*res.DocumentRef)
    if errors.Is(err, storage.ErrBlobNotFound) {
        s.logger.Warnf("document missing reservation=%d ref=%s", id, *res.DocumentRef)
        return nil, "", ErrDocumentNotFound
    }
    if err != nil {
        return nil, "", fmt.Errorf("retrieve document %s: %w", *res.DocumentRef, err)
    }
    return data, *res.DocumentRef, nil
}

// Delete removes a reservation, which frees its seat.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
    res, err := s.ledger.Delete(ctx, id)
    if err != nil {
        return err
    }
    s.invalidate(ctx, res.ScreeningID)
    s.publish(ctx, queue.EventCancelled, res)
    return nil
}

// Get returns one reservation.
func (s *BookingService) Get(ctx context.Context, id uint64) (model.Reservation, error) {
    return s.ledger.Get(ctx, id)
}

// List returns all reservations.
func (s *BookingService) List(ctx context.Context) ([]model.Reservation, error) {
    return s.ledger.List(ctx)
}

func (s *BookingService) invalidate(ctx context.Context, screeningID uint64) {
    if s.seats == nil {
        return
    }
    if err := s.seats.Invalidate(ctx, screeningID); err != nil {
        s.logger.Warnf("seat cache invalidate screening=%d: %v", screeningID, err)
    }
}

// publish hands an event to the publisher and ignores failure; the
// reservation is already committed.  Publishers must not block on the
// broker.  They log their own errors.
func (s *BookingService) publish(ctx context.Context, eventType string, res model.Reservation) {
    if s.events == nil {
        return
    }
    _ = s.events.Publish(ctx, queue.NewReservationEvent(eventType, res, s.now()))
}
