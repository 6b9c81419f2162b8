package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"transit-tracking-service/internal/domain"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "vehicles"

// NATS-backed implementation of the LocationPublisher port.
type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("transit-tracking-service"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected err=%v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the JSON payload subscribers receive for every accepted sample.
type PositionMessage struct {
	ShiftID            int64     `json:"shift_id"`
	VehicleID          int64     `json:"vehicle_id"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	VehicleType        string    `json:"vehicle_type,omitempty"`
	RouteID            *int64    `json:"route_id"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Speed              *float64  `json:"speed"`
	Heading            *float64  `json:"heading"`
	Accuracy           *float64  `json:"accuracy"`
	RecordedAt         time.Time `json:"recorded_at"`
}

func NewPositionMessage(pos domain.LatestPosition) PositionMessage {
	return PositionMessage{
		ShiftID:            pos.ShiftID,
		VehicleID:          pos.VehicleID,
		RegistrationNumber: pos.RegistrationNumber,
		VehicleType:        string(pos.VehicleType),
		RouteID:            pos.RouteID,
		Latitude:           pos.Latitude,
		Longitude:          pos.Longitude,
		Speed:              pos.Speed,
		Heading:            pos.Heading,
		Accuracy:           pos.Accuracy,
		RecordedAt:         pos.RecordedAt.UTC(),
	}
}

// Subject is <prefix>.<route>.<vehicle>; vehicles without a route publish under "none".
func Subject(prefix string, pos domain.LatestPosition) string {
	route := "none"
	if pos.RouteID != nil {
		route = strconv.FormatInt(*pos.RouteID, 10)
	}
	return fmt.Sprintf("%s.%s.%s", subjectToken(prefix), route, strconv.FormatInt(pos.VehicleID, 10))
}

func (p *NATSPublisher) PublishLocation(_ context.Context, pos domain.LatestPosition) error {
	subject := Subject(p.prefix, pos)
	b, err := json.Marshal(NewPositionMessage(pos))
	if err != nil {
		return fmt.Errorf("nats publish %s: encode: %w", subject, err)
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}

	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// a token cannot contain whitespace, wildcards or dots
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
