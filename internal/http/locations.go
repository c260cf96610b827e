package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"biodivscope-backend-go/internal/services"
	"biodivscope-backend-go/internal/threat"
)

type ResolvedLocation struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ZipCode     *string `json:"zip_code"`
	DisplayName string  `json:"display_name,omitempty"`
	Source      string  `json:"source"`
}

type SpeciesRisksResponse struct {
	Location ResolvedLocation       `json:"location"`
	RadiusKm float64                `json:"radius_km"`
	Summary  map[threat.Level]int   `json:"summary"`
	Risks    []services.SpeciesRisk `json:"risks"`
}

func (s *Server) LocationsTest(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Location routes are available"})
}

// SpeciesRisks geocodes a zipcode or address, lists the threatened species
// around it and keeps the list in the caller's session.
func (s *Server) SpeciesRisks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	zip := strings.TrimSpace(query.Get("zipcode"))
	address := strings.TrimSpace(query.Get("address"))
	radius := services.ClampRadius(parseFloat(query.Get("radius_km"), services.DefaultRadiusKm))

	var loc ResolvedLocation
	switch {
	case zip != "":
		lat, lon := s.Geocoder.LatLonFromZip(r.Context(), zip)
		loc = ResolvedLocation{Latitude: lat, Longitude: lon, ZipCode: &zip, Source: "zipcode"}
	case address != "":
		match, ok := s.Geocoder.LatLonFromAddress(r.Context(), address)
		if !ok {
			WriteError(w, http.StatusNotFound, "Address could not be located")
			return
		}
		loc = ResolvedLocation{
			Latitude:    match.Latitude,
			Longitude:   match.Longitude,
			ZipCode:     match.ZipCode,
			DisplayName: match.DisplayName,
			Source:      "address",
		}
	default:
		WriteError(w, http.StatusBadRequest, "Provide a zipcode or address")
		return
	}

	risks, err := s.Locations.NearbySpecies(r.Context(), loc.Latitude, loc.Longitude, radius)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if err := s.saveSessionRisks(w, r, risks); err != nil {
		s.Logger.Warn("could not save risks to session", "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	WriteJSON(w, http.StatusOK, SpeciesRisksResponse{
		Location: loc,
		RadiusKm: radius,
		Summary:  summarize(risks),
		Risks:    risks,
	})
}

func (s *Server) InvasiveSpecies(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoordinates(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	radius := services.ClampRadius(parseFloat(r.URL.Query().Get("radius_km"), services.DefaultRadiusKm))
	items, err := s.Locations.NearbyInvasive(r.Context(), lat, lon, radius)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"radius_km": radius, "items": items})
}

func (s *Server) GridCells(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	lat, lon, err := parseCoordinates(r)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), services.DefaultCellLimit)
	cells, err := s.Locations.NearestCells(r.Context(), domain, lat, lon, limit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"domain": domain, "cells": cells})
}

func summarize(risks []services.SpeciesRisk) map[threat.Level]int {
	summary := map[threat.Level]int{}
	for _, level := range threat.Levels() {
		summary[level] = 0
	}
	for _, risk := range risks {
		summary[risk.RiskLevel]++
	}
	return summary
}
