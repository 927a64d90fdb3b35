package live

// Latest adapts a callback subscription into a channel. The channel holds at
// most one pending value; a newer value replaces one nobody has read yet,
// which suits streams where every emission is a full snapshot.
func Latest[T any](subscribe func(func(T)) (*Subscription, error)) (<-chan T, *Subscription, error) {
	ch := make(chan T, 1)
	sub, err := subscribe(func(v T) {
		for {
			select {
			case ch <- v:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return ch, sub, nil
}
