package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateDistribution : trop peu de patients pour former des quartiles.
	ErrDegenerateDistribution = errors.New("degenerate distribution: not enough patients for quartiles")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
)

// ErrMissingPatientID : colonne présente mais valeur vide sur la ligne.
var ErrMissingPatientID = errors.New("missing patient id")

// MissingColumnError : colonne obligatoire absente de la source. Erreur fatale de configuration.
type MissingColumnError struct {
	Column string
	Source string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("missing required column %q in %s", e.Column, e.Source)
	}
	return fmt.Sprintf("missing required column %q", e.Column)
}

// InvalidFieldError : valeur illisible ou hors domaine sur une ligne.
// Err vaut ErrInvalidDate, ErrInvalidAmount ou ErrMissingPatientID.
type InvalidFieldError struct {
	Row   int
	Field string
	Value string
	Err   error
}

// Error implements the error interface
func (e *InvalidFieldError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %v for field %s (value: %q)", e.Row, e.Err, e.Field, e.Value)
	}
	return fmt.Sprintf("%v for field %s (value: %q)", e.Err, e.Field, e.Value)
}

// Unwrap returns the underlying error
func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

// NewInvalidDate crée une InvalidFieldError de type date.
func NewInvalidDate(row int, field, value string) error {
	return &InvalidFieldError{Row: row, Field: field, Value: value, Err: ErrInvalidDate}
}

// NewInvalidAmount crée une InvalidFieldError de type montant.
func NewInvalidAmount(row int, field, value string) error {
	return &InvalidFieldError{Row: row, Field: field, Value: value, Err: ErrInvalidAmount}
}

// NewMissingPatientID crée une InvalidFieldError pour un patient_id vide.
func NewMissingPatientID(row int) error {
	return &InvalidFieldError{Row: row, Field: "patient_id", Err: ErrMissingPatientID}
}
