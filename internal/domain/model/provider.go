package model

// SelectProvider returns which worker of u covers a session in period during a
// week flagged priority. NoWorker means the unit does not provide in that
// period (an orphan whose side of the week is the other half-day).
func SelectProvider(roster *Roster, u Unit, period Period, priority Priority) WorkerID {
	am := period == PeriodAM
	switch u.Kind() {
	case KindLinkedPair, KindSeniorPlusExtra, KindJuniorPlusExtra:
		if priority == PriorityUpper {
			return pick(am, u.B(), u.A())
		}
		return pick(am, u.A(), u.B())
	case KindSeniorSolo, KindJuniorSolo, KindMergedPair:
		if priority == PriorityUpper {
			return pick(am, u.A(), u.B())
		}
		return pick(am, u.B(), u.A())
	case KindSplitSolo:
		solo, _ := u.Solo()
		return solo
	case KindOrphan:
		solo, _ := u.Solo()
		w, ok := roster.Lookup(solo)
		if !ok {
			return NoWorker
		}
		if w.Priority == priority {
			return pick(am, solo, NoWorker)
		}
		return pick(am, NoWorker, solo)
	default:
		return NoWorker
	}
}

func pick(am bool, amWorker, pmWorker WorkerID) WorkerID {
	if am {
		return amWorker
	}
	return pmWorker
}
