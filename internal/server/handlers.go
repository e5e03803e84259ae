package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"parking-lot/internal/config"
	"parking-lot/internal/logging"
	"parking-lot/internal/parking"
)

const lotMissing = "Parking lot not created. Create parking lot first"

type Handler struct {
	serviceName string
	telemetry   *parking.TelemetryProvider

	mu         sync.RWMutex
	parkingLot *parking.InstrumentedParkingLot
}

// NewHandler serves lot, which may be nil until POST /api/parking-lot.
func NewHandler(serviceName string, telemetry *parking.TelemetryProvider, lot *parking.InstrumentedParkingLot) *Handler {
	return &Handler{
		serviceName: serviceName,
		telemetry:   telemetry,
		parkingLot:  lot,
	}
}

// Lot returns the lot currently served.
func (h *Handler) Lot() *parking.InstrumentedParkingLot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.parkingLot
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

// CreateParkingLot replaces the served lot. The registry of the old lot is
// discarded.
func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req config.LotConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Slots) == 0 {
		WriteError(ctx, w, http.StatusBadRequest, "At least one slot is required")
		return
	}
	if req.EntryPoints < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Entry points must not be negative")
		return
	}

	lot, err := req.Build()
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	instrumented, err := parking.NewInstrumentedParkingLot(lot, h.telemetry)
	if err != nil {
		logging.Error(ctx).Err(err).Msg("failed to instrument parking lot")
		WriteError(ctx, w, http.StatusInternalServerError, "Failed to create parking lot")
		return
	}

	h.mu.Lock()
	previous := h.parkingLot
	h.parkingLot = instrumented
	h.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			logging.Warn(ctx).Err(err).Msg("failed to unregister previous parking lot")
		}
	}

	logging.Info(ctx).
		Int("capacity", lot.Capacity()).
		Int("entry_points", lot.EntryPoints()).
		Msg("parking lot created")

	WriteSuccess(ctx, w, "Parking lot created successfully", map[string]any{
		"capacity":     lot.Capacity(),
		"entry_points": lot.EntryPoints(),
	})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	var req ParkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.VehicleID == "" || req.Size == "" || req.EntryPoint == nil {
		WriteError(ctx, w, http.StatusBadRequest, "vehicle_id, size and entry_point are required")
		return
	}

	size, err := parking.ParseSize(req.Size)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	slotID, err := lot.Park(ctx, req.VehicleID, size, *req.EntryPoint)
	if err != nil {
		writeLotError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", ParkVehicleResponse{
		SlotID:    slotID,
		VehicleID: req.VehicleID,
		Size:      size.String(),
	})
}

func (h *Handler) UnparkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	var req UnparkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.VehicleID == "" {
		WriteError(ctx, w, http.StatusBadRequest, "vehicle_id is required")
		return
	}

	receipt, err := lot.Unpark(ctx, req.VehicleID, req.ExitTime)
	if err != nil {
		writeLotError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle unparked successfully", receipt)
}

func (h *Handler) GetFees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	vehicleID := chi.URLParam(r, "vehicleID")

	var exit *time.Time
	if raw := r.URL.Query().Get("exit_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(ctx, w, http.StatusBadRequest, "exit_time must be RFC3339")
			return
		}
		exit = &t
	}

	fee, err := lot.CalculateFees(ctx, vehicleID, exit)
	if err != nil {
		writeLotError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Fee calculated", FeeResponse{
		VehicleID: vehicleID,
		Fee:       fee,
	})
}

func (h *Handler) FindNearestSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	query := r.URL.Query()
	size, err := parking.ParseSize(query.Get("size"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	entryPoint, err := strconv.Atoi(query.Get("entry_point"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "entry_point must be an integer")
		return
	}

	slot, err := lot.FindNearestSlot(ctx, size, entryPoint)
	if err != nil {
		writeLotError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Slot found", newSlotStatus(slot))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	stats, slots := lot.GetStatus(ctx)

	response := StatusResponse{
		Stats:       stats,
		EntryPoints: lot.EntryPoints(),
		BySize:      make(map[string]parking.SizeStats, len(stats.BySize)),
		Slots:       make([]SlotStatus, 0, len(slots)),
	}
	for size, ss := range stats.BySize {
		response.BySize[size.String()] = ss
	}
	for _, s := range slots {
		response.Slots = append(response.Slots, newSlotStatus(s))
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", response)
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.Lot()
	if lot == nil {
		WriteError(ctx, w, http.StatusBadRequest, lotMissing)
		return
	}

	vehicle, ok := lot.Vehicle(ctx, chi.URLParam(r, "vehicleID"))
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", newVehicleResponse(vehicle))
}

func writeLotError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(r.Context()).Err(err).Msg("parking lot operation failed")
	}
	WriteError(r.Context(), w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrNoSlotAvailable), errors.Is(err, parking.ErrAlreadyParked):
		return http.StatusConflict
	case errors.Is(err, parking.ErrVehicleNotParked), errors.Is(err, parking.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrInvalidSize),
		errors.Is(err, parking.ErrInvalidEntryPoint),
		errors.Is(err, parking.ErrInvalidLayout):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
