package cart

type AddOutcome int

const (
	Added AddOutcome = iota
	AlreadyExists
)

func (o AddOutcome) String() string {
	switch o {
	case Added:
		return "added"
	case AlreadyExists:
		return "already_exists"
	}
	return "unknown"
}

type RemoveOutcome int

const (
	Removed RemoveOutcome = iota
	NothingMatched
)

func (o RemoveOutcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case NothingMatched:
		return "nothing_matched"
	}
	return "unknown"
}

type UpdateOutcome int

const (
	Updated UpdateOutcome = iota
	NotFound
)

func (o UpdateOutcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}
