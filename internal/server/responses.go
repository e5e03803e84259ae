package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-lot/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkVehicleRequest struct {
	VehicleID  string `json:"vehicle_id"`
	Size       string `json:"size"`
	EntryPoint *int   `json:"entry_point"`
}

type ParkVehicleResponse struct {
	SlotID    int    `json:"slot_id"`
	VehicleID string `json:"vehicle_id"`
	Size      string `json:"size"`
}

type UnparkVehicleRequest struct {
	VehicleID string     `json:"vehicle_id"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
}

type FeeResponse struct {
	VehicleID string  `json:"vehicle_id"`
	Fee       float64 `json:"fee"`
}

type SlotStatus struct {
	SlotID    int    `json:"slot_id"`
	Size      string `json:"size"`
	Distances []int  `json:"distances"`
	Occupied  bool   `json:"occupied"`
	VehicleID string `json:"vehicle_id,omitempty"`
}

type StatusResponse struct {
	parking.Stats
	EntryPoints int                          `json:"entry_points"`
	BySize      map[string]parking.SizeStats `json:"by_size"`
	Slots       []SlotStatus                 `json:"slots"`
}

type VehicleResponse struct {
	VehicleID         string     `json:"vehicle_id"`
	Size              string     `json:"size"`
	Parked            bool       `json:"parked"`
	SlotID            *int       `json:"slot_id,omitempty"`
	EntryTime         *time.Time `json:"entry_time,omitempty"`
	LastExitTime      *time.Time `json:"last_exit_time,omitempty"`
	LastParkingSlotID *int       `json:"last_parking_slot_id,omitempty"`
}

func newSlotStatus(s parking.Slot) SlotStatus {
	return SlotStatus{
		SlotID:    s.ID,
		Size:      s.Size.String(),
		Distances: s.Distances,
		Occupied:  s.IsOccupied,
		VehicleID: s.VehicleID,
	}
}

func newVehicleResponse(v parking.Vehicle) VehicleResponse {
	res := VehicleResponse{
		VehicleID:         v.ID,
		Size:              v.Size.String(),
		EntryTime:         v.EntryTime,
		LastExitTime:      v.LastExitTime,
		LastParkingSlotID: v.LastParkingSlotID,
	}
	if id, ok := v.SlotID(); ok {
		res.Parked = true
		res.SlotID = &id
	}
	return res
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
