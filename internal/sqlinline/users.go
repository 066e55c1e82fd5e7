package sqlinline

const userColumns = `id, telegram_id, coalesce(username, ''), coalesce(first_name, ''), coalesce(last_name, ''),
       coalesce(photo_url, ''), subscription_type, subscription_active, subscription_expires_at,
       coalesce(stripe_customer_id, ''), daily_generations, monthly_generations, last_reset_at, created_at, updated_at`

const QUpsertTelegramUser = `--sql 94e14ba7-e466-41cf-89bb-7ae2bbb786dd
insert into users (id, telegram_id, username, first_name, last_name, photo_url, last_reset_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, $5::text, now())
on conflict (telegram_id) do update
set username   = excluded.username,
    first_name = excluded.first_name,
    last_name  = excluded.last_name,
    photo_url  = excluded.photo_url,
    updated_at = now()
returning ` + userColumns + `;
`

const QSelectUserByID = `--sql ba524326-57c1-4db6-882c-0651672e3be3
select ` + userColumns + `
from users
where id = $1::uuid;
`

const QSelectUserByTelegramID = `--sql 23346bbd-be09-4934-a9e8-e7135f1191ec
select ` + userColumns + `
from users
where telegram_id = $1::text;
`

const QSelectUserByStripeCustomer = `--sql cac8accb-d0c3-4f11-ba44-6bb93bbcad0e
select ` + userColumns + `
from users
where stripe_customer_id = $1::text;
`

const QSetStripeCustomerID = `--sql 9dc88f57-4c11-4cf1-a797-b6a7fbe93156
update users
set stripe_customer_id = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSetSubscription = `--sql 1728701f-4a55-43a3-a651-179a934e3c44
update users
set subscription_type       = $2::text,
    subscription_active     = $3::boolean,
    subscription_expires_at = $4::timestamptz,
    updated_at              = now()
where id = $1::uuid;
`

// Conditional write for the usage commit: the update only lands when the
// counters still match the snapshot the delta was computed from, so a
// concurrent commit for the same user cannot lose an increment.
const QConditionalUsageUpdate = `--sql 7adb7988-5ab3-4f2c-8911-87a261a58a5e
update users
set daily_generations   = $2::int,
    monthly_generations = $3::int,
    last_reset_at       = $4::timestamptz,
    updated_at          = now()
where id = $1::uuid
  and daily_generations = $5::int
  and monthly_generations = $6::int
  and last_reset_at = $7::timestamptz
returning ` + userColumns + `;
`
