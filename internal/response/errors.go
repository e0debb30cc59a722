package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrIllegalValue   ErrCode = "ILLEGAL_RUBRIC_VALUE"
	ErrInvalidScale   ErrCode = "INVALID_SCALE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrRoundNotFound     ErrCode = "ROUND_NOT_FOUND"
	ErrCandidateNotFound ErrCode = "CANDIDATE_NOT_FOUND"

	// ─── Judging ───────────────────────────────────────────────────────
	ErrNoRoundSelected        ErrCode = "NO_ROUND_SELECTED"
	ErrNoCandidateSelected    ErrCode = "NO_CANDIDATE_SELECTED"
	ErrRoundNotActive         ErrCode = "ROUND_NOT_ACTIVE"
	ErrIncompleteRubric       ErrCode = "INCOMPLETE_RUBRIC"
	ErrZeroScoreConfirmation  ErrCode = "ZERO_SCORE_CONFIRMATION_REQUIRED"
	ErrResetConfirmation      ErrCode = "RESET_CONFIRMATION_REQUIRED"
	ErrSubmissionInFlight     ErrCode = "SUBMISSION_IN_FLIGHT"
	ErrSubmissionFailed       ErrCode = "SUBMISSION_FAILED"
	ErrCompetitionUnavailable ErrCode = "COMPETITION_API_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username atau kata sandi juri salah."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrIllegalValue:
		return "Nilai tidak tersedia untuk kriteria ini."
	case ErrInvalidScale:
		return "Skala nilai tidak diketahui."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrRoundNotFound:
		return "Babak tidak ditemukan."
	case ErrCandidateNotFound:
		return "Peserta tidak ditemukan di babak ini."

	// ─── Judging ───────────────────────────────────────────────────────
	case ErrNoRoundSelected:
		return "Pilih babak terlebih dahulu."
	case ErrNoCandidateSelected:
		return "Pilih peserta terlebih dahulu."
	case ErrRoundNotActive:
		return "Babak tidak aktif, penilaian tidak dapat dilakukan."
	case ErrIncompleteRubric:
		return "Lengkapi semua nilai untuk kelima soal sebelum mengirim."
	case ErrZeroScoreConfirmation:
		return "Total nilai 0. Konfirmasi diperlukan untuk mengirim nilai nol."
	case ErrResetConfirmation:
		return "Konfirmasi diperlukan untuk menghapus semua nilai."
	case ErrSubmissionInFlight:
		return "Pengiriman nilai sedang diproses."
	case ErrSubmissionFailed:
		return "Gagal mengirim nilai."
	case ErrCompetitionUnavailable:
		return "Layanan data lomba tidak dapat dihubungi."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
